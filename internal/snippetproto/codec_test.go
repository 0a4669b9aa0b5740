package snippetproto

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	req := &Request{JobID: "j1", SnippetID: 1, SnippetName: "fetch", Variables: map[string]any{"x": 1}}
	var buf bytes.Buffer
	require.NoError(t, EncodeRequest(&buf, req))

	var decoded Request
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "j1", decoded.JobID)
	require.Equal(t, "fetch", decoded.SnippetName)
}

func TestDecodeResponse_OK(t *testing.T) {
	resp, err := DecodeResponse(strings.NewReader(`{"status":"ok","emits":["done"]}`))
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, []string{"done"}, resp.Emits)
}

func TestDecodeResponse_ErrorRequiresMessage(t *testing.T) {
	_, err := DecodeResponse(strings.NewReader(`{"status":"error"}`))
	require.Error(t, err)
}

func TestDecodeResponse_EmptyOutputIsError(t *testing.T) {
	_, err := DecodeResponse(strings.NewReader(``))
	require.Error(t, err)
}

func TestDecodeResponse_InvalidStatus(t *testing.T) {
	_, err := DecodeResponse(strings.NewReader(`{"status":"maybe"}`))
	require.Error(t, err)
}
