// Copyright 2025 DoRobot Labs
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// hardwareKeys are the fields the detection tool owns; Regenerate replaces
// exactly these and preserves everything else, credentials included.
var hardwareKeys = map[string]bool{
	"CAMERA_TOP_PATH":   true,
	"CAMERA_WRIST_PATH": true,
	"ARM_LEADER_PORT":   true,
	"ARM_FOLLOWER_PORT": true,
}

// parseFile reads a key=value device config file. Inline comments after a
// '#' are stripped, values may be single or double quoted, and a missing
// file yields an empty map.
func parseFile(path string) (map[string]string, error) {

	values := make(map[string]string)

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		key, value, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if key == "" {
			return nil, fmt.Errorf("malformed line %d in %s", line, path)
		}
		values[key] = value
	}
	err = scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	return values, nil
}

// parseLine splits one config line. It returns ok=false for blank lines and
// comments, and an empty key for malformed content.
func parseLine(raw string) (string, string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}

	key, value, found := strings.Cut(trimmed, "=")
	if !found {
		return "", "", true
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	// Quoted values keep their content verbatim, including '#'.
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		return key, value[1 : len(value)-1], true
	}

	// Unquoted values end at an inline comment.
	value, _, _ = strings.Cut(value, "#")
	return key, strings.TrimSpace(value), true
}

// Regenerate rewrites the hardware-identity fields of a device config file
// in place, preserving every other line byte for byte. The detection tool
// calls this after probing devices; credentials and mode fields survive.
func Regenerate(path string, hardware map[string]string) error {

	for key := range hardware {
		if !hardwareKeys[key] {
			return fmt.Errorf("key %s is not a hardware field", key)
		}
	}

	var lines []string
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not read config file: %w", err)
	}
	if err == nil {
		lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	}

	seen := make(map[string]bool)
	for i, line := range lines {
		key, _, ok := parseLine(line)
		if !ok || !hardwareKeys[key] {
			continue
		}
		value, replace := hardware[key]
		if !replace {
			continue
		}
		lines[i] = key + "=" + value
		seen[key] = true
	}

	missing := make([]string, 0, len(hardware))
	for key := range hardware {
		if !seen[key] {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	for _, key := range missing {
		lines = append(lines, key+"="+hardware[key])
	}

	out := strings.Join(lines, "\n") + "\n"
	err = os.WriteFile(path, []byte(out), 0o644)
	if err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}

	return nil
}
