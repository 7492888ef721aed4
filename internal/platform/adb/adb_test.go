package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/mj1618/swipegen/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records every adb invocation and answers from a table keyed by
// the joined argument list (after any -s serial).
type fakeRunner struct {
	calls   [][]string
	outputs map[string]string
	errs    map[string]error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	key := strings.Join(args, " ")
	if len(args) > 2 && args[0] == "-s" {
		key = strings.Join(args[2:], " ")
	}
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return []byte(f.outputs[key]), nil
}

func newFake(outputs map[string]string) (*Client, *fakeRunner) {
	f := &fakeRunner{outputs: outputs, errs: map[string]error{}}
	return New(platform.ProviderOptions{Serial: "emulator-5554", ADBPath: "/opt/adb"}, f.run), f
}

func TestWindowSize(t *testing.T) {
	tests := []struct {
		name  string
		out   string
		w, h  int
		fails bool
	}{
		{"physical", "Physical size: 1080x1920\n", 1080, 1920, false},
		{"override wins", "Physical size: 1440x3120\nOverride size: 1080x2340\n", 1080, 2340, false},
		{"garbage", "error: no devices", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newFake(map[string]string{"shell wm size": tt.out})
			w, h, err := c.WindowSize(context.Background())
			if tt.fails {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestCommandsIncludeSerial(t *testing.T) {
	c, f := newFake(nil)
	require.NoError(t, c.Click(context.Background(), 216, 384))
	require.Len(t, f.calls, 1)
	assert.Equal(t, []string{"/opt/adb", "-s", "emulator-5554", "shell", "input", "tap", "216", "384"}, f.calls[0])
}

func TestSwipeAndDrag(t *testing.T) {
	c, f := newFake(nil)
	ctx := context.Background()
	require.NoError(t, c.Swipe(ctx, 540, 1728, 540, 192, 300*time.Millisecond))
	require.NoError(t, c.Drag(ctx, 10, 20, 30, 40, time.Second))
	assert.Equal(t, []string{"shell", "input", "swipe", "540", "1728", "540", "192", "300"}, f.calls[0][3:])
	assert.Equal(t, []string{"shell", "input", "draganddrop", "10", "20", "30", "40", "1000"}, f.calls[1][3:])
}

func TestScreenshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 8))))
	c, _ := newFake(map[string]string{"exec-out screencap -p": buf.String()})

	img, err := c.Screenshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, image.Pt(4, 8), img.Bounds().Size())

	c, _ = newFake(map[string]string{"exec-out screencap -p": "not a png"})
	_, err = c.Screenshot(context.Background())
	assert.ErrorContains(t, err, "decode screencap")
}

func TestCurrentPackage(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{
			"current focus",
			"  mCurrentFocus=Window{a1b2c3 u0 com.example.app/com.example.app.MainActivity}\n",
			"com.example.app",
		},
		{
			"focused app fallback",
			"  mCurrentFocus=null\n  mFocusedApp=AppWindowToken{x token=ActivityRecord{d4e5 u0 tv.danmaku.bili/.MainActivityV2 t12}}\n",
			"tv.danmaku.bili",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCurrentPackage(tt.out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseCurrentPackage("nothing useful")
	assert.Error(t, err)
}

func TestAppLifecycle(t *testing.T) {
	c, f := newFake(map[string]string{
		"shell monkey -p com.bad -c android.intent.category.LAUNCHER 1": "** No activities found to run, monkey aborted.",
	})
	ctx := context.Background()

	require.NoError(t, c.AppStart(ctx, "com.example"))
	require.NoError(t, c.AppStop(ctx, "com.example"))
	assert.Equal(t, []string{"shell", "monkey", "-p", "com.example", "-c", "android.intent.category.LAUNCHER", "1"}, f.calls[0][3:])
	assert.Equal(t, []string{"shell", "am", "force-stop", "com.example"}, f.calls[1][3:])

	assert.ErrorContains(t, c.AppStart(ctx, "com.bad"), "no launchable activity")

	f.errs["shell am force-stop com.example"] = errors.New("device offline")
	assert.ErrorContains(t, c.AppStop(ctx, "com.example"), "device offline")
}

func TestDeviceInfo(t *testing.T) {
	c, _ := newFake(map[string]string{
		"shell getprop": "[ro.product.model]: [Pixel 7]\n[ro.product.brand]: [google]\n[ro.build.version.sdk]: [34]\n[persist.sys.locale]: [en-US]\n",
		"shell wm size": "Physical size: 1080x2400\n",
	})
	info, err := c.DeviceInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"model":          "Pixel 7",
		"brand":          "google",
		"sdk":            "34",
		"serial":         "emulator-5554",
		"display_width":  "1080",
		"display_height": "2400",
	}, info)
}

func TestListDevices(t *testing.T) {
	f := &fakeRunner{outputs: map[string]string{
		"devices -l": "* daemon started successfully\nList of devices attached\nemulator-5554          device product:sdk_gphone64 model:sdk_gphone64 transport_id:1\nR58M12ABCDE    unauthorized usb:1-1 transport_id:2\n\n",
	}}
	devices, err := ListDevices(context.Background(), "", f.run)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "emulator-5554", devices[0].Serial)
	assert.Equal(t, "device", devices[0].State)
	assert.Equal(t, "sdk_gphone64", devices[0].Attrs["model"])
	assert.Equal(t, "unauthorized", devices[1].State)
	assert.Equal(t, "adb", f.calls[0][0])
}

func TestProviderRegistration(t *testing.T) {
	p, err := platform.NewProvider(platform.ProviderOptions{Serial: "x"})
	require.NoError(t, err)
	_, err = p.Device()
	assert.NoError(t, err)
}

// TestHelperProcess is not a real test; ExecRunner tests re-exec the test
// binary into it.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("HELPER_FAIL") == "1" {
		fmt.Fprint(os.Stderr, "error: device not found")
		os.Exit(1)
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	fmt.Fprint(os.Stdout, strings.Join(args, " "))
	os.Exit(0)
}

func TestExecRunner(t *testing.T) {
	defer func() { execCommandContext = exec.CommandContext }()

	fake := func(fail bool) func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return func(ctx context.Context, name string, args ...string) *exec.Cmd {
			cs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
			cmd := exec.CommandContext(ctx, os.Args[0], cs...)
			cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
			if fail {
				cmd.Env = append(cmd.Env, "HELPER_FAIL=1")
			}
			return cmd
		}
	}

	execCommandContext = fake(false)
	out, err := ExecRunner(context.Background(), "adb", "shell", "wm", "size")
	require.NoError(t, err)
	assert.Equal(t, "shell wm size", string(out))

	execCommandContext = fake(true)
	_, err = ExecRunner(context.Background(), "adb", "devices")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device not found")
}
