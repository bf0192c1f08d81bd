package camsim

import (
	"bytes"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	sim := NewServer(opts)
	ts := httptest.NewServer(sim.Handler())
	t.Cleanup(ts.Close)
	return sim, ts
}

func do(t *testing.T, method, url string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealth(t *testing.T) {
	sim, ts := newTestServer(t, Options{})

	resp, body := do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", gjson.GetBytes(body, "status").String())

	sim.SetHealthStatus(http.StatusServiceUnavailable)
	resp, _ = do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStatus_ReflectsStream(t *testing.T) {
	sim, ts := newTestServer(t, Options{})

	_, body := do(t, http.MethodGet, ts.URL+"/status", nil)
	assert.True(t, gjson.GetBytes(body, "camera").IsObject())
	assert.True(t, gjson.GetBytes(body, "server").IsObject())
	assert.Equal(t, gjson.False, gjson.GetBytes(body, "camera.isStreaming").Type)
	assert.Equal(t, "1280x720", gjson.GetBytes(body, "camera.streamResolution").String())

	resp, _ := do(t, http.MethodPost, ts.URL+"/stream/start", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, sim.Streaming())

	_, body = do(t, http.MethodGet, ts.URL+"/status", nil)
	assert.Equal(t, gjson.True, gjson.GetBytes(body, "camera.isStreaming").Type)

	do(t, http.MethodPost, ts.URL+"/stream/stop", nil)
	assert.False(t, sim.Streaming())
}

func TestStreamConfig_RoundTrip(t *testing.T) {
	sim, ts := newTestServer(t, Options{})

	payload, _ := json.Marshal(StreamConfig{Width: 640, Height: 480, FPS: 15, Quality: 70})
	for i := 0; i < 3; i++ {
		resp, _ := do(t, http.MethodPost, ts.URL+"/stream/config", payload)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "write %d", i)
	}

	resp, body := do(t, http.MethodGet, ts.URL+"/stream/config", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(640), gjson.GetBytes(body, "width").Int())
	assert.Equal(t, int64(480), gjson.GetBytes(body, "height").Int())
	assert.Equal(t, int64(15), gjson.GetBytes(body, "fps").Int())
	assert.Equal(t, StreamConfig{Width: 640, Height: 480, FPS: 15, Quality: 70}, sim.Config())
}

func TestStreamConfig_RejectsBadBody(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, _ := do(t, http.MethodPost, ts.URL+"/stream/config", []byte(`{"width":`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/stream/config", []byte(`{"width":0,"height":1,"fps":1}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCapture_ReturnsJPEG(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	for _, path := range []string{"/photo/quick", "/photo"} {
		resp, body := do(t, http.MethodPost, ts.URL+path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"), path)

		_, err := jpeg.Decode(bytes.NewReader(body))
		assert.NoError(t, err, "%s should return a decodable JPEG", path)
	}
}

func TestCapture_WrongMethod(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, _ := do(t, http.MethodGet, ts.URL+"/photo", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCapture_SlotsReturnBusy(t *testing.T) {
	_, ts := newTestServer(t, Options{CaptureSlots: 1, CaptureDelay: 100 * time.Millisecond})

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[int]int{}
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(ts.URL+"/photo/quick", "", nil)
			if err != nil {
				return
			}
			resp.Body.Close()
			mu.Lock()
			codes[resp.StatusCode]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, codes[http.StatusOK], 1)
	assert.GreaterOrEqual(t, codes[http.StatusTooManyRequests], 1)
	assert.Equal(t, 4, codes[http.StatusOK]+codes[http.StatusTooManyRequests])
}

func TestCapture_KillStreamOnFull(t *testing.T) {
	sim, ts := newTestServer(t, Options{KillStreamOnFullCapture: true})
	sim.SetStreaming(true)

	do(t, http.MethodPost, ts.URL+"/photo/quick", nil)
	assert.True(t, sim.Streaming(), "quick capture must not stop the stream")

	do(t, http.MethodPost, ts.URL+"/photo", nil)
	assert.False(t, sim.Streaming(), "full capture should stop the stream")
}

func TestFailNext(t *testing.T) {
	sim, ts := newTestServer(t, Options{})
	sim.FailNext("/photo/quick", 2, http.StatusTooManyRequests)

	var codes []int
	for i := 0; i < 4; i++ {
		resp, _ := do(t, http.MethodPost, ts.URL+"/photo/quick", nil)
		codes = append(codes, resp.StatusCode)
	}

	assert.Equal(t, []int{429, 429, 200, 200}, codes)
	assert.Equal(t, int64(4), sim.Hits("/photo/quick"))
}

func TestStallNext(t *testing.T) {
	sim, ts := newTestServer(t, Options{})
	sim.StallNext("/status", 1, 80*time.Millisecond)

	start := time.Now()
	do(t, http.MethodGet, ts.URL+"/status", nil)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)

	start = time.Now()
	do(t, http.MethodGet, ts.URL+"/status", nil)
	assert.Less(t, time.Since(start), 80*time.Millisecond)
}

func TestSetDelay(t *testing.T) {
	sim, ts := newTestServer(t, Options{})
	sim.SetDelay("/health", 50*time.Millisecond)

	start := time.Now()
	do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	sim.SetDelay("/health", 0)
	start = time.Now()
	do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestHits(t *testing.T) {
	sim, ts := newTestServer(t, Options{})

	do(t, http.MethodGet, ts.URL+"/health", nil)
	do(t, http.MethodGet, ts.URL+"/status", nil)
	do(t, http.MethodGet, ts.URL+"/status", nil)

	assert.Equal(t, int64(1), sim.Hits("/health"))
	assert.Equal(t, int64(2), sim.Hits("/status"))
	assert.Equal(t, int64(3), sim.TotalHits())
}
