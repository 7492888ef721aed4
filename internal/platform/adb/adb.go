// Package adb drives an Android device through the adb command-line tool.
package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mj1618/swipegen/internal/platform"
)

// Client talks to one device. It implements platform.Device.
type Client struct {
	path   string
	serial string
	run    Runner
}

// New returns a Client. A nil run uses ExecRunner.
func New(opts platform.ProviderOptions, run Runner) *Client {
	path := opts.ADBPath
	if path == "" {
		path = "adb"
	}
	if run == nil {
		run = ExecRunner
	}
	return &Client{path: path, serial: opts.Serial, run: run}
}

func (c *Client) adb(ctx context.Context, args ...string) ([]byte, error) {
	if c.serial != "" {
		args = append([]string{"-s", c.serial}, args...)
	}
	return c.run(ctx, c.path, args...)
}

func (c *Client) shell(ctx context.Context, args ...string) (string, error) {
	out, err := c.adb(ctx, append([]string{"shell"}, args...)...)
	return string(out), err
}

var sizeRe = regexp.MustCompile(`(Physical|Override) size:\s*(\d+)x(\d+)`)

// WindowSize returns the effective display size, preferring an override set
// with `wm size`.
func (c *Client) WindowSize(ctx context.Context) (int, int, error) {
	out, err := c.shell(ctx, "wm", "size")
	if err != nil {
		return 0, 0, fmt.Errorf("wm size: %w", err)
	}
	return parseWindowSize(out)
}

func parseWindowSize(out string) (int, int, error) {
	var w, h int
	for _, m := range sizeRe.FindAllStringSubmatch(out, -1) {
		mw, _ := strconv.Atoi(m[2])
		mh, _ := strconv.Atoi(m[3])
		if m[1] == "Override" || w == 0 {
			w, h = mw, mh
		}
	}
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("unrecognized wm size output: %q", strings.TrimSpace(out))
	}
	return w, h, nil
}

// Screenshot captures the screen as PNG via screencap.
func (c *Client) Screenshot(ctx context.Context) (image.Image, error) {
	out, err := c.adb(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, fmt.Errorf("screencap: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode screencap: %w", err)
	}
	return img, nil
}

// Click taps at (x, y).
func (c *Client) Click(ctx context.Context, x, y int) error {
	_, err := c.shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// Swipe moves a finger from (x1, y1) to (x2, y2) over duration.
func (c *Client) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	_, err := c.shell(ctx, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.FormatInt(duration.Milliseconds(), 10))
	return err
}

// Drag long-presses at (x1, y1) and drops at (x2, y2).
func (c *Client) Drag(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	_, err := c.shell(ctx, "input", "draganddrop",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.FormatInt(duration.Milliseconds(), 10))
	return err
}

var (
	focusRe      = regexp.MustCompile(`mCurrentFocus=Window\{\S+ \S+ ([A-Za-z0-9_.]+)[/}\s]`)
	focusedAppRe = regexp.MustCompile(`mFocusedApp=.*?ActivityRecord\{\S+ \S+ ([A-Za-z0-9_.]+)/`)
)

// CurrentPackage returns the package of the focused window.
func (c *Client) CurrentPackage(ctx context.Context) (string, error) {
	out, err := c.shell(ctx, "dumpsys", "window")
	if err != nil {
		return "", fmt.Errorf("dumpsys window: %w", err)
	}
	return parseCurrentPackage(out)
}

func parseCurrentPackage(out string) (string, error) {
	if m := focusRe.FindStringSubmatch(out); m != nil {
		return m[1], nil
	}
	if m := focusedAppRe.FindStringSubmatch(out); m != nil {
		return m[1], nil
	}
	return "", errors.New("no focused window in dumpsys output")
}

// AppStart launches the package's launcher activity.
func (c *Client) AppStart(ctx context.Context, pkg string) error {
	out, err := c.shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		return fmt.Errorf("start %s: %w", pkg, err)
	}
	if strings.Contains(out, "No activities found") || strings.Contains(out, "monkey aborted") {
		return fmt.Errorf("start %s: no launchable activity", pkg)
	}
	return nil
}

// AppStop force-stops the package.
func (c *Client) AppStop(ctx context.Context, pkg string) error {
	if _, err := c.shell(ctx, "am", "force-stop", pkg); err != nil {
		return fmt.Errorf("stop %s: %w", pkg, err)
	}
	return nil
}

// infoProps maps reported keys to system properties.
var infoProps = map[string]string{
	"brand":        "ro.product.brand",
	"manufacturer": "ro.product.manufacturer",
	"model":        "ro.product.model",
	"release":      "ro.build.version.release",
	"sdk":          "ro.build.version.sdk",
	"serial":       "ro.serialno",
}

var propRe = regexp.MustCompile(`(?m)^\[([^\]]+)\]: \[([^\]]*)\]`)

// DeviceInfo returns a few identifying properties plus the display size.
func (c *Client) DeviceInfo(ctx context.Context) (map[string]string, error) {
	out, err := c.shell(ctx, "getprop")
	if err != nil {
		return nil, fmt.Errorf("getprop: %w", err)
	}
	props := make(map[string]string)
	for _, m := range propRe.FindAllStringSubmatch(out, -1) {
		props[m[1]] = m[2]
	}
	info := make(map[string]string, len(infoProps)+2)
	for key, prop := range infoProps {
		if v, ok := props[prop]; ok {
			info[key] = v
		}
	}
	if w, h, err := c.WindowSize(ctx); err == nil {
		info["display_width"] = strconv.Itoa(w)
		info["display_height"] = strconv.Itoa(h)
	}
	if c.serial != "" {
		info["serial"] = c.serial
	}
	return info, nil
}

// DeviceEntry is one line of `adb devices -l`.
type DeviceEntry struct {
	Serial string            `yaml:"serial" json:"serial"`
	State  string            `yaml:"state" json:"state"`
	Attrs  map[string]string `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

// ListDevices returns the devices adb can see.
func ListDevices(ctx context.Context, adbPath string, run Runner) ([]DeviceEntry, error) {
	if adbPath == "" {
		adbPath = "adb"
	}
	if run == nil {
		run = ExecRunner
	}
	out, err := run(ctx, adbPath, "devices", "-l")
	if err != nil {
		return nil, err
	}
	return parseDevices(string(out)), nil
}

func parseDevices(out string) []DeviceEntry {
	var devices []DeviceEntry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		d := DeviceEntry{Serial: fields[0], State: fields[1]}
		for _, f := range fields[2:] {
			k, v, ok := strings.Cut(f, ":")
			if !ok {
				continue
			}
			if d.Attrs == nil {
				d.Attrs = make(map[string]string)
			}
			d.Attrs[k] = v
		}
		devices = append(devices, d)
	}
	return devices
}
