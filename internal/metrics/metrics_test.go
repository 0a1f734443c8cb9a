package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDBQuery(t *testing.T) {
	okBefore := testutil.ToFloat64(DBQueriesTotal.WithLabelValues("INSERT", "test", "success"))
	errBefore := testutil.ToFloat64(DBQueriesTotal.WithLabelValues("INSERT", "test", "error"))

	RecordDBQuery("INSERT", "test", time.Millisecond, nil)
	RecordDBQuery("INSERT", "test", time.Millisecond, errors.New("boom"))
	RecordDBQuery("INSERT", "test", time.Millisecond, nil)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(DBQueriesTotal.WithLabelValues("INSERT", "test", "success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(DBQueriesTotal.WithLabelValues("INSERT", "test", "error")))
}

func TestUpdateDBConnectionStats(t *testing.T) {
	UpdateDBConnectionStats(3, 1, 2)

	assert.Equal(t, 3.0, testutil.ToFloat64(DBConnectionsOpen))
	assert.Equal(t, 1.0, testutil.ToFloat64(DBConnectionsInUse))
	assert.Equal(t, 2.0, testutil.ToFloat64(DBConnectionsIdle))
}

func TestRecordRun(t *testing.T) {
	successBefore := testutil.ToFloat64(RunsTotal.WithLabelValues("success"))
	errorBefore := testutil.ToFloat64(RunsTotal.WithLabelValues("error"))

	RecordRun(time.Second, nil)
	RecordRun(time.Second, errors.New("schema error"))

	assert.Equal(t, successBefore+1, testutil.ToFloat64(RunsTotal.WithLabelValues("success")))
	assert.Equal(t, errorBefore+1, testutil.ToFloat64(RunsTotal.WithLabelValues("error")))
	assert.Greater(t, testutil.ToFloat64(LastSuccess), 0.0)
}

func TestPush(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	RowsTotal.WithLabelValues("fetched").Add(24)

	require.NoError(t, Push(context.Background(), srv.URL, "weather_pipeline"))
	assert.Equal(t, "/metrics/job/weather_pipeline", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Contains(t, string(gotBody), "weather_pipeline_rows_total")
}
