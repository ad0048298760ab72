// Command nativehost is the native-messaging entrypoint browsers launch over
// stdio. It holds no session state of its own: every message is decoded,
// proxied to the loopback autofill service, and the response relayed back
// (§4.10). The browser extension is the caller; the loopback service is the
// only place credentials are decrypted.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/confpass-app/confpass/internal/nativebridge"
	"github.com/confpass-app/confpass/internal/paths"
)

const (
	bufferSize   = 1 << 16
	maxFrameSize = 1 << 20
	baseURL      = "http://127.0.0.1:1421"
)

func main() {
	dirs, err := paths.Default()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nativehost: resolve app dir: %v\n", err)
		os.Exit(1)
	}

	bridge := nativebridge.New(dirs.AuthToken(), baseURL)

	reader := bufio.NewReaderSize(os.Stdin, bufferSize)
	writer := bufio.NewWriterSize(os.Stdout, bufferSize)

	for {
		payload, err := readFrame(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			fmt.Fprintf(os.Stderr, "nativehost: read error: %v\n", err)
			return
		}

		var msg map[string]any
		if err := json.Unmarshal(payload, &msg); err != nil {
			writeFrame(writer, map[string]any{"success": false, "error": "invalid json"})
			continue
		}

		resp := bridge.Handle(msg)
		if err := writeFrame(writer, resp); err != nil {
			fmt.Fprintf(os.Stderr, "nativehost: write error: %v\n", err)
			return
		}
	}
}

// readFrame consumes one length-prefixed native-messaging frame from stdin,
// rejecting anything above maxFrameSize before allocating a buffer for it.
func readFrame(r *bufio.Reader) ([]byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(lenBuf)
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame too large: %d", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func writeFrame(w *bufio.Writer, resp map[string]any) error {
	encoded, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(encoded)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	if _, err := w.Write(encoded); err != nil {
		return err
	}
	return w.Flush()
}
