package host

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

// HandleRequest processes a raw JSON request payload and returns a raw JSON
// response payload. Operational errors are reported inside the response; the
// returned error is only set when not even an error response can be encoded.
func (h *Host) HandleRequest(ctx context.Context, requestPayload []byte) ([]byte, error) {
	var req types.Request
	if err := json.Unmarshal(requestPayload, &req); err != nil {
		return marshalErrorResponse(fmt.Errorf("failed to unmarshal request: %w", err))
	}

	requestID := uuid.NewString()
	h.logger.DebugContext(ctx, "Handling request", "request_id", requestID, "command", req.Command)

	var resp types.Response
	var opErr error

	switch req.Command {
	case types.CommandCreateEmpty:
		resp.Image, opErr = h.CreateEmpty(ctx)
	case types.CommandInit:
		resp.Image, opErr = h.Init(ctx, req.SQL)
	case types.CommandImport:
		resp.Image, opErr = h.Import(ctx, req.Path)
	case types.CommandExport:
		resp.OK, opErr = h.Export(ctx, req.Image, req.Path)
	case types.CommandExecute:
		resp.Image, opErr = h.Execute(ctx, req.Image, req.SQL)
	case types.CommandVacuum:
		resp.Image, opErr = h.Vacuum(ctx, req.Image)
	case types.CommandQuery:
		resp.Rows, opErr = h.Query(ctx, req.Image, req.SQL)
	case types.CommandListTables:
		resp.Names, opErr = h.ListTables(ctx, req.Image)
	case types.CommandSchema:
		resp.Names, opErr = h.Schema(ctx, req.Image)
	case types.CommandCountRows:
		resp.Count, opErr = h.CountRows(ctx, req.Image, req.Table)
	default:
		opErr = fmt.Errorf("unknown command: %s", req.Command)
	}

	if opErr != nil {
		h.logger.DebugContext(ctx, "Request failed", "request_id", requestID, "error", opErr)
		return marshalErrorResponse(opErr)
	}
	return json.Marshal(resp)
}

func marshalErrorResponse(opErr error) ([]byte, error) {
	resp := types.Response{
		Error:     opErr.Error(),
		ErrorType: types.TypeOf(opErr).String(),
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		// This is a critical failure: can't even marshal the error response.
		return []byte(`{"error":"critical: failed to marshal error response"}`),
			fmt.Errorf("failed to marshal error response for '%s': %w", opErr, err)
	}
	return payload, nil
}
