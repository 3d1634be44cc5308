package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/tallybridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, host string) *Client {
	t.Helper()
	return NewClient(config.TallyConfig{
		Host:           host,
		RequestTimeout: 500 * time.Millisecond,
		ProbeTimeout:   200 * time.Millisecond,
	}, zaptest.NewLogger(t), nil)
}

func TestSendPostsXML(t *testing.T) {
	var gotBody, gotContentType, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("<RESPONSE><CREATED>1</CREATED></RESPONSE>"))
	}))
	defer srv.Close()

	body, err := newTestClient(t, srv.URL).Send(context.Background(), "ledger_create", "<ENVELOPE/>")
	require.NoError(t, err)

	assert.Equal(t, "<RESPONSE><CREATED>1</CREATED></RESPONSE>", body)
	assert.Equal(t, "<ENVELOPE/>", gotBody)
	assert.Equal(t, "application/xml", gotContentType)
	assert.Equal(t, "application/xml", gotAccept)
}

func TestSendHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Ledger does not exist"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Send(context.Background(), "ledger_delete", "<ENVELOPE/>")
	require.Error(t, err)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, KindHTTPStatus, terr.Kind)
	assert.Equal(t, http.StatusInternalServerError, terr.StatusCode)
	assert.Equal(t, "Ledger does not exist", terr.Body)
	assert.Equal(t, "Tally returned 500: Ledger does not exist", err.Error())
	assert.False(t, IsRetryable(err))
}

func TestSendConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	host := srv.URL
	srv.Close()

	_, err := newTestClient(t, host).Send(context.Background(), "ledger_create", "<ENVELOPE/>")
	require.Error(t, err)

	assert.Equal(t, KindConnectionRefused, KindOf(err))
	assert.True(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "Cannot connect to Tally at "+host)
	assert.Contains(t, err.Error(), "Tally is running")
	assert.Contains(t, err.Error(), "ODBC is enabled")
}

func TestSendTimeoutIsNoResponse(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(t, srv.URL).Send(context.Background(), "voucher_create", "<ENVELOPE/>")
	require.Error(t, err)
	assert.Equal(t, KindNoResponse, KindOf(err))
	assert.Equal(t, "No response received from Tally", err.Error())
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<ENVELOPE>TallyPrime</ENVELOPE>"))
	}))
	defer srv.Close()

	assert.NoError(t, newTestClient(t, srv.URL).Probe(context.Background(), "<ENVELOPE/>"))
}

func TestProbeEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	err := newTestClient(t, srv.URL).Probe(context.Background(), "<ENVELOPE/>")
	assert.Equal(t, KindNoResponse, KindOf(err))
}

func TestPortFromHost(t *testing.T) {
	c := NewClient(config.TallyConfig{Host: "http://tally.local"}, nil, nil)
	assert.Equal(t, "9000", c.port)
	assert.Equal(t, DefaultRequestTimeout, c.requestTimeout)
	assert.Equal(t, DefaultProbeTimeout, c.probeTimeout)

	c = NewClient(config.TallyConfig{Host: "http://127.0.0.1:9100"}, nil, nil)
	assert.Equal(t, "9100", c.port)
}
