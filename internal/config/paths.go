// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// GetDataDir returns the paneward data directory.
//
// Priority:
//  1. PANEWARD_DATA_DIR environment variable (if set and non-empty)
//  2. ~/.paneward (default)
//
// The returned path is always absolute. Tilde (~) is expanded to the
// user's home directory, relative paths are made absolute.
//
// This is read directly from os.Getenv, not viper, to avoid a circular
// dependency during bootstrap: it must be known before the config file
// search path can be built.
func GetDataDir() string {
	if dataDir := os.Getenv("PANEWARD_DATA_DIR"); dataDir != "" {
		return expandPath(dataDir)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".paneward"
	}
	return filepath.Join(homeDir, ".paneward")
}

// GetSandboxDir returns the directory used as the working directory for
// resolving relative project paths referenced by hook payloads.
//
// Priority:
//  1. PANEWARD_SANDBOX_DIR environment variable
//  2. GetDataDir()
func GetSandboxDir() string {
	if sandboxDir := os.Getenv("PANEWARD_SANDBOX_DIR"); sandboxDir != "" {
		return expandPath(sandboxDir)
	}
	return GetDataDir()
}

// GetSubDir returns a subdirectory within the data directory, e.g.
// GetSubDir("logs") returns ~/.paneward/logs.
func GetSubDir(subdir string) string {
	return filepath.Join(GetDataDir(), subdir)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
