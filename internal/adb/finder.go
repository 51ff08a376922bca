package adb

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// DeviceInfo is one line of `adb devices -l`
type DeviceInfo struct {
	Serial  string
	State   string
	Model   string
	Product string
}

func adbBinary() string {
	if runtime.GOOS == "windows" {
		return "adb.exe"
	}
	return "adb"
}

// FindADB attempts to locate the ADB executable.
// preferred may name the binary itself or a folder holding it.
func FindADB(preferred string) (string, error) {
	bin := adbBinary()

	if preferred != "" {
		candidates := []string{
			preferred,
			filepath.Join(preferred, bin),
			filepath.Join(preferred, "platform-tools", bin),
		}
		for _, p := range candidates {
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p, nil
			}
		}
		return "", fmt.Errorf("adb not found at %s", preferred)
	}

	var commonPaths []string
	for _, env := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if root := os.Getenv(env); root != "" {
			commonPaths = append(commonPaths, filepath.Join(root, "platform-tools", bin))
		}
	}

	home, _ := os.UserHomeDir()
	if runtime.GOOS == "windows" {
		commonPaths = append(commonPaths,
			`C:\Android\sdk\platform-tools\adb.exe`,
			filepath.Join(os.Getenv("LOCALAPPDATA"), "Android", "Sdk", "platform-tools", bin),
		)
	} else {
		commonPaths = append(commonPaths,
			"/usr/bin/adb",
			"/usr/local/bin/adb",
			filepath.Join(home, "Android", "Sdk", "platform-tools", bin),
			filepath.Join(home, "Library", "Android", "sdk", "platform-tools", bin),
		)
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	if p, err := exec.LookPath(bin); err == nil {
		return p, nil
	}

	return "", fmt.Errorf("adb not found, please specify path in config")
}

// ListDevices runs `adb devices -l` and parses the device table
func ListDevices(ctx context.Context, runner Runner, adbPath string) ([]DeviceInfo, error) {
	if runner == nil {
		runner = ExecRunner{}
	}
	output, err := runner.Run(ctx, adbPath, "devices", "-l")
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return parseDevices(string(output)), nil
}

func parseDevices(output string) []DeviceInfo {
	var devices []DeviceInfo
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		d := DeviceInfo{Serial: fields[0], State: fields[1]}
		for _, f := range fields[2:] {
			key, value, ok := strings.Cut(f, ":")
			if !ok {
				continue
			}
			switch key {
			case "model":
				d.Model = value
			case "product":
				d.Product = value
			}
		}
		devices = append(devices, d)
	}
	return devices
}
