package logbuf

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerCapturesAllLevels(t *testing.T) {
	buf := New()
	logger := slog.New(NewHandler(buf, nil))

	logger.Debug("probing")
	logger.Info("found something")
	logger.Warn("odd but fine")
	logger.Error("gave up")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"DEBUG probing",
		"INFO found something",
		"WARN odd but fine",
		"ERROR gave up",
	}, lines)
}

func TestHandlerRendersAttrs(t *testing.T) {
	buf := New()
	logger := slog.New(NewHandler(buf, nil)).With("service", "caldav")

	logger.Info("trying candidate", "url", "https://example.com/", "attempt", 2)

	assert.Equal(t, "INFO trying candidate service=caldav url=https://example.com/ attempt=2\n", buf.String())
}

func TestHandlerGroups(t *testing.T) {
	buf := New()
	logger := slog.New(NewHandler(buf, nil)).WithGroup("http")

	logger.Info("response", "status", 207)

	assert.Equal(t, "INFO response http.status=207\n", buf.String())
}

func TestHandlerForwards(t *testing.T) {
	var fwd bytes.Buffer
	next := slog.NewTextHandler(&fwd, &slog.HandlerOptions{Level: slog.LevelWarn})
	buf := New()
	logger := slog.New(NewHandler(buf, next))

	logger.Info("kept locally only")
	logger.Warn("forwarded too")

	assert.Contains(t, buf.String(), "kept locally only")
	assert.Contains(t, buf.String(), "forwarded too")
	assert.NotContains(t, fwd.String(), "kept locally only", "next handler's level gate must be respected")
	assert.Contains(t, fwd.String(), "forwarded too")
}

func TestBufferConcurrentAppends(t *testing.T) {
	buf := New()
	logger := slog.New(NewHandler(buf, nil))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				logger.Info("probe")
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 400)
	for _, line := range lines {
		assert.Equal(t, "INFO probe", line)
	}
}
