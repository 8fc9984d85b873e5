package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
)

// Decode unmarshals raw into a T.  A shape mismatch becomes ParseError so
// callers see one failure class for every malformed backend answer.
func Decode[T any](op string, raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, apperr.New(apperr.KindParse, op, "empty response body")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, apperr.Wrap(apperr.KindParse, op, fmt.Errorf("decode %T: %w", out, err))
	}
	return out, nil
}

// Fetch runs req through c and decodes the answer into a T.
func Fetch[T any](ctx context.Context, c Caller, req Request) (T, error) {
	raw, err := c.Do(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T]("gateway."+req.Group, raw)
}
