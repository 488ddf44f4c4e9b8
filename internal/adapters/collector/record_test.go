package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToRecordSplitsColumns(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec, err := ToRecord([]byte(`{"apikey":"app-1","type":"error","message":"boom","userId":"u","error":{"name":"X"}}`), at)
	require.NoError(t, err)

	require.Equal(t, "app-1", rec.AppID)
	require.Equal(t, "error", rec.EventType)
	require.NotNil(t, rec.Message)
	require.Equal(t, "boom", *rec.Message)
	require.Equal(t, at, rec.ReceivedAt)
	require.JSONEq(t, `{"userId":"u","error":{"name":"X"}}`, string(rec.Info))
}

func TestToRecordOptionalFields(t *testing.T) {
	rec, err := ToRecord([]byte(`{"apikey":"app-1","message":42}`), time.Now())
	require.NoError(t, err)
	require.Equal(t, "", rec.EventType)
	require.Nil(t, rec.Message)
	require.JSONEq(t, `{}`, string(rec.Info))
}

func TestToRecordRejectsMalformed(t *testing.T) {
	for _, raw := range []string{`not json`, `null`, `[1,2]`, `{"type":"error"}`, `{"apikey":""}`} {
		_, err := ToRecord([]byte(raw), time.Now())
		require.Error(t, err, raw)
	}
}
