// Package fsutil provides the recursive directory walk the aggregator uses
// to discover result files a runner script produced.
//
// Adapted from https://github.com/thought-machine/please
// Copyright Thought Machine, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0
package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	pkgerrors "github.com/pkg/errors"
)

// WalkMode walks rootPath, following symlinks (a run directory's output may
// itself be a symlink into a shared scratch area), invoking callback for
// every entry with its type.
func WalkMode(rootPath string, callback func(name string, isDir bool, mode os.FileMode) error) error {
	return godirwalk.Walk(rootPath, &godirwalk.Options{
		Callback: func(name string, info *godirwalk.Dirent) error {
			isDir, err := info.IsDirOrSymlinkToDir()
			if err != nil {
				pathErr := &os.PathError{}
				if errors.As(err, &pathErr) {
					return godirwalk.SkipThis
				}
				return err
			}
			return callback(name, isDir, info.ModeType())
		},
		ErrorCallback: func(pathname string, err error) godirwalk.ErrorAction {
			pathErr := &os.PathError{}
			if errors.As(err, &pathErr) {
				return godirwalk.SkipNode
			}
			return godirwalk.Halt
		},
		Unsorted:            true,
		AllowNonDirectory:   true,
		FollowSymbolicLinks: true,
	})
}

// FindSuffix walks root recursively and returns the paths of every regular
// file whose name ends in suffix, relative to root, sorted lexicographically.
func FindSuffix(root string, suffix string) ([]string, error) {
	var out []string
	err := WalkMode(root, func(name string, isDir bool, mode os.FileMode) error {
		if isDir || !strings.HasSuffix(name, suffix) {
			return nil
		}
		rel, err := filepath.Rel(root, name)
		if err != nil {
			return err
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "walking %q", root)
	}
	sort.Strings(out)
	return out, nil
}
