package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mustfahassan/pd-calculator/internal/detector"
	"github.com/mustfahassan/pd-calculator/internal/measure"
)

func newService(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.Method != http.MethodPost || r.URL.Path != CalculatePath {
			http.Error(w, "unexpected request", http.StatusTeapot)
			return
		}
		req, err := measure.DecodeRequest(r.Body)
		if err != nil || len(req.Landmarks) != detector.NumLandmarks {
			http.Error(w, "bad landmarks", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_Submit(t *testing.T) {
	landmarks := detector.CenteredFace(0.35).Points

	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		wantPD    float64
		wantConf  float64
		wantInErr string
	}{
		{
			name:     "success",
			status:   http.StatusOK,
			body:     `{"status":"success","pd_mm":63.2,"confidence":91}`,
			wantPD:   63.2,
			wantConf: 91,
		},
		{
			name:      "error body",
			status:    http.StatusOK,
			body:      `{"status":"error","message":"low confidence"}`,
			wantErr:   ErrRejected,
			wantInErr: "low confidence",
		},
		{
			name:      "unknown status without message",
			status:    http.StatusOK,
			body:      `{"status":"pending"}`,
			wantErr:   ErrRejected,
			wantInErr: `"pending"`,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"status":"error"}`,
			wantErr: ErrHTTPStatus,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"status":`,
			wantErr: ErrMalformed,
		},
		{
			name:    "success without measurement",
			status:  http.StatusOK,
			body:    `{"status":"success"}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "success without confidence",
			status:  http.StatusOK,
			body:    `{"status":"success","pd_mm":62}`,
			wantErr: ErrMalformed,
		},
		{
			name:   "explicit zero confidence",
			status: http.StatusOK,
			body:   `{"status":"success","pd_mm":62,"confidence":0}`,
			wantPD: 62,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := newService(t, tt.status, tt.body, &calls)
			c := New(ts.URL+"/", ts.Client())

			res, err := c.Submit(context.Background(), landmarks)

			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "exactly one attempt")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
				if tt.wantInErr != "" {
					assert.Contains(t, err.Error(), tt.wantInErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, measure.StatusSuccess, res.Status)
			assert.Equal(t, tt.wantPD, res.PDMM)
			assert.Equal(t, tt.wantConf, res.Confidence)
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(url, nil)
	_, err := c.Submit(context.Background(), detector.CenteredFace(0.35).Points)

	assert.Error(t, err)
}

func TestClient_ContextCancelled(t *testing.T) {
	var calls int32
	ts := newService(t, http.StatusOK, `{"status":"success"}`, &calls)
	c := New(ts.URL, ts.Client())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Submit(ctx, detector.CenteredFace(0.35).Points)

	assert.ErrorIs(t, err, context.Canceled)
}
