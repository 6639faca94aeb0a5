package reply

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/pgway/pgway/pkg/proto"
	"github.com/pgway/pgway/pkg/waylog"
)

// txidle is the ReadyForQuery status byte for an idle session.
const txidle = byte('I')

// Sender is the slice of the client connection this package needs.
type Sender interface {
	Send(msg pgproto3.BackendMessage) error
}

// WriteIntercept encodes a synthesized result set onto the client
// connection and frees the rows afterward: ownership transferred to
// the host when the plugin returned its output, and this is the last
// host-side reader.
func WriteIntercept(cl Sender, intercept *proto.Intercept) error {
	// Rows must go back to the allocator even when the connection
	// drops mid-stream.
	defer func() {
		for _, row := range intercept.Rows {
			proto.RowFree(row)
		}
	}()

	fields := make([]pgproto3.FieldDescription, 0, len(intercept.Description.Columns))
	for _, col := range intercept.Description.Columns {
		fields = append(fields, fieldDescription(col))
	}
	if err := cl.Send(&pgproto3.RowDescription{Fields: fields}); err != nil {
		waylog.Zero.Error().Err(err).Msg("")
		return err
	}

	for _, row := range intercept.Rows {
		vals := make([][]byte, 0, row.NumColumns())
		for i := 0; i < row.NumColumns(); i++ {
			vals = append(vals, row.Column(i))
		}
		if err := cl.Send(&pgproto3.DataRow{Values: vals}); err != nil {
			waylog.Zero.Error().Err(err).Msg("")
			return err
		}
	}

	return completeMsg(cl, len(intercept.Rows))
}

// WriteError sends a plugin's routing error to the client verbatim.
func WriteError(cl Sender, perr proto.Error) error {
	if err := cl.Send(&pgproto3.ErrorResponse{
		Severity: perr.Severity,
		Code:     perr.Code,
		Message:  perr.Message,
		Detail:   perr.Detail,
	}); err != nil {
		waylog.Zero.Error().Err(err).Msg("")
		return err
	}
	return cl.Send(&pgproto3.ReadyForQuery{TxStatus: txidle})
}

func completeMsg(cl Sender, rowCnt int) error {
	for _, msg := range []pgproto3.BackendMessage{
		&pgproto3.CommandComplete{CommandTag: []byte(fmt.Sprintf("SELECT %d", rowCnt))},
		&pgproto3.ReadyForQuery{TxStatus: txidle},
	} {
		if err := cl.Send(msg); err != nil {
			waylog.Zero.Error().Err(err).Msg("")
			return err
		}
	}
	return nil
}

func fieldDescription(col proto.RowDescriptionColumn) pgproto3.FieldDescription {
	return pgproto3.FieldDescription{
		Name:                 []byte(col.Name),
		TableOID:             0,
		TableAttributeNumber: 0,
		DataTypeOID:          col.OID,
		DataTypeSize:         -1,
		TypeModifier:         -1,
		Format:               0,
	}
}
