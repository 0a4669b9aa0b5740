package snippetproto

import (
	"encoding/json"
	"fmt"
	"io"
)

// EncodeRequest serializes req as a single line of JSON to w.
func EncodeRequest(w io.Writer, req *Request) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(req); err != nil {
		return fmt.Errorf("snippetproto: encode request: %w", err)
	}
	return nil
}

// DecodeResponse reads and validates a Response from r. A snippet binary
// that wrote nothing, or whose JSON is malformed, or whose status is
// neither "ok" nor "error" is treated as a protocol violation — the caller
// should fold this into an Error() transition rather than panic.
func DecodeResponse(r io.Reader) (*Response, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("snippetproto: read response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("snippetproto: snippet produced no output on stdout")
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("snippetproto: response is not valid JSON: %w", err)
	}
	switch resp.Status {
	case StatusOK, StatusError:
	default:
		return nil, fmt.Errorf("snippetproto: invalid status %q", resp.Status)
	}
	if resp.Status == StatusError && resp.Error == "" {
		return nil, fmt.Errorf("snippetproto: status=error but no error message")
	}
	return &resp, nil
}
