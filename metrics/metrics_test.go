package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgebuild/forge/message"
)

func TestRecorder(t *testing.T) {
	t.Run("counts messages by kind", func(t *testing.T) {
		r, err := NewRecorder()
		require.NoError(t, err)

		r.MessageObserved(message.Start)
		r.MessageObserved(message.Start)
		r.MessageObserved(message.Fail)

		assert.Equal(t, float64(2), testutil.ToFloat64(r.messages.WithLabelValues("start")))
		assert.Equal(t, float64(1), testutil.ToFloat64(r.messages.WithLabelValues("failure")))
	})

	t.Run("tracks active tasks and jobs", func(t *testing.T) {
		r, err := NewRecorder()
		require.NoError(t, err)

		r.TaskStarted()
		r.TaskStarted()
		r.TaskStopped()
		r.JobOpened()

		assert.Equal(t, float64(1), testutil.ToFloat64(r.tasks))
		assert.Equal(t, float64(1), testutil.ToFloat64(r.jobs))

		r.TaskStopped()
		r.JobClosed()
		assert.Equal(t, float64(0), testutil.ToFloat64(r.tasks))
		assert.Equal(t, float64(0), testutil.ToFloat64(r.jobs))
	})

	t.Run("counts renders", func(t *testing.T) {
		r, err := NewRecorder()
		require.NoError(t, err)

		r.StatusRendered()
		assert.Equal(t, float64(1), testutil.ToFloat64(r.renders))
	})

	t.Run("handler serves the registry", func(t *testing.T) {
		r, err := NewRecorder()
		require.NoError(t, err)
		r.MessageObserved(message.Info)

		srv := httptest.NewServer(r.Handler())
		defer srv.Close()

		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Contains(t, string(body), "forge_messages_total")
	})
}

func TestPusher(t *testing.T) {
	received := make(chan []prompb.TimeSeries, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "application/x-protobuf", r.Header.Get("Content-Type"))
		assert.Equal(t, "0.1.0", r.Header.Get("X-Prometheus-Remote-Write-Version"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)

		var req prompb.WriteRequest
		require.NoError(t, proto.Unmarshal(decoded, &req))
		received <- req.Timeseries

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	recorder, err := NewRecorder()
	require.NoError(t, err)
	recorder.MessageObserved(message.Start)
	recorder.MessageObserved(message.Success)
	recorder.TaskStarted()

	pusher := NewPusher(server.URL, "forge", WithInstance("run-42"))
	require.NoError(t, pusher.Push(context.Background(), recorder.Registry()))

	timeseries := <-received
	require.NotEmpty(t, timeseries)

	byName := make(map[string][]prompb.TimeSeries)
	for _, ts := range timeseries {
		labels := make(map[string]string, len(ts.Labels))
		for _, l := range ts.Labels {
			labels[l.Name] = l.Value
		}
		assert.Equal(t, "forge", labels["job"])
		assert.Equal(t, "run-42", labels["instance"])
		byName[labels["__name__"]] = append(byName[labels["__name__"]], ts)
	}

	require.Len(t, byName["forge_messages_total"], 2)
	require.Len(t, byName["forge_active_tasks"], 1)
	assert.Equal(t, float64(1), byName["forge_active_tasks"][0].Samples[0].Value)
}

func TestPusherErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of disk", http.StatusInternalServerError)
	}))
	defer server.Close()

	recorder, err := NewRecorder()
	require.NoError(t, err)
	recorder.MessageObserved(message.Start)

	pusher := NewPusher(server.URL, "forge")
	err = pusher.Push(context.Background(), recorder.Registry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}
