// Copyright © 2018 One Concern

package model

import (
	"fmt"
	"path"
	"strings"
)

// Layout of the client root. Every function below yields a path
// relative to the root; callers anchor it on their base directory.
const (
	configFile     = "config"
	installedFile  = "installed"
	journalFile    = "journal"
	lockFile       = ".opam-lock"
	lastUpdateFile = "last-update"

	indexDir     = "index"
	buildDir     = "build"
	libDir       = "lib"
	binDir       = "bin"
	toInstallDir = "to_install"
	keysDir      = "keys"
	archivesDir  = "archives"

	// SpecExt is the filename extension of package descriptions.
	SpecExt = ".spec"
	// ArchiveExt is the filename extension of source archives.
	ArchiveExt = ".tar.gz"
	// InstallExt is the extension of build-produced install manifests.
	InstallExt = ".install"
)

func GetConfigPath() string    { return configFile }
func GetInstalledPath() string { return installedFile }
func GetJournalPath() string   { return journalFile }
func GetLockPath() string      { return lockFile }

// GetIndexPath is the per-package spec area; for git remotes it is
// also the root of the local clone.
func GetIndexPath() string { return indexDir }

func GetSpecPath(nv NV) string {
	return path.Join(indexDir, SpecFileName(nv))
}

// GetLastUpdatePath records the last synchronized commit of the git
// clone under index/.
func GetLastUpdatePath() string {
	return path.Join(indexDir, lastUpdateFile)
}

func GetBuildPath(nv NV) string {
	return path.Join(buildDir, nv.String())
}

func GetLibPath(name string) string {
	return path.Join(libDir, name)
}

func GetBinPath() string { return binDir }

func GetToInstallPath(nv NV) string {
	return path.Join(toInstallDir, nv.String())
}

func GetKeyPath(name string) string {
	return path.Join(keysDir, name)
}

func GetArchivesPath() string { return archivesDir }

func GetArchivePath(nv NV) string {
	return path.Join(archivesDir, ArchiveFileName(nv))
}

// SpecFileName renders "name-version.spec".
func SpecFileName(nv NV) string {
	return fmt.Sprint(nv.String(), SpecExt)
}

// ArchiveFileName renders "name-version.tar.gz".
func ArchiveFileName(nv NV) string {
	return fmt.Sprint(nv.String(), ArchiveExt)
}

// InstallFileName renders "name.install", the manifest a build may
// leave in its build tree.
func InstallFileName(name string) string {
	return fmt.Sprint(name, InstallExt)
}

// NVFromSpecFile parses the identity out of a spec filename such as
// "foo-1.0.spec" (any leading directories are ignored). The second
// return is false when the name is not a well-formed spec filename.
func NVFromSpecFile(filename string) (NV, bool) {
	base := path.Base(filename)
	if !strings.HasSuffix(base, SpecExt) {
		return NV{}, false
	}
	nv, err := ParseNV(strings.TrimSuffix(base, SpecExt))
	if err != nil {
		return NV{}, false
	}
	return nv, true
}

// NVFromArchiveFile parses the identity out of an archive filename
// such as "foo-1.0.tar.gz".
func NVFromArchiveFile(filename string) (NV, bool) {
	base := path.Base(filename)
	if !strings.HasSuffix(base, ArchiveExt) {
		return NV{}, false
	}
	nv, err := ParseNV(strings.TrimSuffix(base, ArchiveExt))
	if err != nil {
		return NV{}, false
	}
	return nv, true
}

// TopLevelDirs lists the directories Init materializes under a fresh
// root.
func TopLevelDirs() []string {
	return []string{indexDir, buildDir, libDir, binDir, toInstallDir, keysDir, archivesDir}
}
