package channel

import (
	"fmt"
	"io"
)

// RequestComplete is the server-sent completion marker line.
const RequestComplete = "REQUESTCOMPLETE"

// ResultPrefix tags the result line that follows the completion marker.
const ResultPrefix = "stl:"

// WriteResponse sends the fixed completion marker followed by one result
// line, both CRLF terminated. Closing the connection stays with the server;
// the writer only appends to the stream.
func WriteResponse(w io.Writer, result string) error {
	if _, err := fmt.Fprintf(w, "%s\r\n%s%s\r\n", RequestComplete, ResultPrefix, result); err != nil {
		return fmt.Errorf("channel: write response: %w", err)
	}
	return nil
}
