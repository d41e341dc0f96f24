// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"fmt"

	"github.com/astaxie/beego/config"
)

// ConfigSection is the ini section holding collector options. Keys
// use the RTGCDEBUG names, for example:
//
//	[gc]
//	heapsize = 64M
//	beat = 500us
//	gctrace = 1
const ConfigSection = "gc"

// LoadOptions reads options from an ini file, starting from the
// defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	cnf, err := config.NewConfig("ini", path)
	if err != nil {
		return opts, fmt.Errorf("load %s: %w", path, err)
	}
	if err := ApplyConfig(&opts, cnf); err != nil {
		return opts, fmt.Errorf("load %s: %w", path, err)
	}
	return opts, nil
}

// ApplyConfig applies every option present in the [gc] section of cnf.
func ApplyConfig(o *Options, cnf config.Configer) error {
	for _, v := range dbgvars {
		s := cnf.String(ConfigSection + "::" + v.name)
		if s == "" {
			continue
		}
		if err := v.set(o, s); err != nil {
			return fmt.Errorf("%s::%s = %s: %w", ConfigSection, v.name, s, err)
		}
	}
	return nil
}
