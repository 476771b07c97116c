package screenshots_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/noor/internal/testutil"
)

// The temp root carries the test name, so it contains "Screenshot".
func TestScanScreenshotNamedRootIsNotAMatch(t *testing.T) {
	env := testutil.NewEnv(t, testutil.Recognizer("text"))
	if !strings.Contains(env.Root, "Screenshot") {
		t.Fatalf("root %q should contain Screenshot", env.Root)
	}
	testutil.WriteImage(t, filepath.Join(env.Root, "Camera", "beach.png"), time.Now())
	testutil.WriteImage(t, filepath.Join(env.Root, "Screenshots", "s1.png"), time.Now())
	env.Sync(t)

	res := env.Pipeline.Scan(context.Background())
	if !res.Success || res.NewImagesFound != 1 {
		t.Fatalf("scan = %+v, want 1 new", res)
	}
	if p := env.Pipeline.Pending(); len(p) != 1 || p[0].DisplayName != "s1.png" {
		t.Errorf("pending = %+v", p)
	}
}
