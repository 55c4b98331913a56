package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories, and
// returns path.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// TimedTextSample is a three-fragment caption track in the timedtext XML
// format. The first two fragments merge into "Hello world."
const TimedTextSample = `<?xml version="1.0" encoding="utf-8" ?>
<transcript>
<text start="0" dur="1.0">Hello</text>
<text start="1.1" dur="1.0">world.</text>
<text start="3" dur="1.5">It&amp;#39;s a test</text>
</transcript>
`
