package clipmirror

import (
	"context"
	"fmt"
	"io"
	"net"
)

// SendSetRequest streams r into the selected slot(s) of the server at address.
// It half-closes after the payload and does not wait for the server to apply it.
func SendSetRequest(ctx context.Context, address string, selection byte, r io.Reader) error {
	conn, err := dial(ctx, address)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.Write(EncodeRequest(OperationWrite, selection, nil)); err != nil {
		return fmt.Errorf("error writing to server: %w", err)
	}
	if _, err := io.Copy(conn, r); err != nil {
		abort(conn)
		return fmt.Errorf("error streaming payload to server: %w", err)
	}
	return closeWrite(conn)
}

// SendGetRequest copies the selected slot of the server at address into w.
// An empty clipboard and a request the server rejected both produce no output.
func SendGetRequest(ctx context.Context, address string, selection byte, w io.Writer) error {
	conn, err := dial(ctx, address)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.Write(EncodeRequest(OperationRead, selection, nil)); err != nil {
		return fmt.Errorf("error writing to server: %w", err)
	}
	if err := closeWrite(conn); err != nil {
		return err
	}
	if _, err := io.Copy(w, conn); err != nil {
		return fmt.Errorf("error reading response from server: %w", err)
	}
	return nil
}

func dial(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return conn, nil
}

// closeWrite marks the end of the request. The server reads until it sees it.
func closeWrite(conn net.Conn) error {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		return fmt.Errorf("connection to %s cannot be half-closed", conn.RemoteAddr())
	}
	if err := cw.CloseWrite(); err != nil {
		return fmt.Errorf("error closing write side: %w", err)
	}
	return nil
}

// abort makes the following Close reset the connection, so the server sees a
// read error instead of a short payload it would apply.
func abort(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetLinger(0)
	}
}
