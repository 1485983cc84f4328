package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-facecursor/pkg/web"
)

var (
	watchAddr   string
	watchStatus bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print cursor positions from a running instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := watchAddr
		if addr == "" {
			addr = pageAddr(cfg.Server.Addr)
		}
		path := "/ws/cursor"
		if watchStatus {
			path = "/ws/status"
		}
		u := url.URL{Scheme: "ws", Host: addr, Path: path}

		dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
		conn, _, err := dialer.DialContext(cmd.Context(), u.String(), nil)
		if err != nil {
			return fmt.Errorf("connect %s: %w", u.String(), err)
		}
		defer conn.Close()

		fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", u.String())

		go func() {
			<-cmd.Context().Done()
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if cmd.Context().Err() != nil {
					return nil
				}
				return fmt.Errorf("read: %w", err)
			}
			printMessage(data)
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", "", "host:port of a running instance (default: server.addr)")
	watchCmd.Flags().BoolVar(&watchStatus, "status", false, "Watch status and alerts instead of the cursor")
	rootCmd.AddCommand(watchCmd)
}

func printMessage(data []byte) {
	var env web.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}

	switch env.Type {
	case web.TypeCursor:
		var m web.CursorMessage
		if json.Unmarshal(data, &m) == nil {
			fmt.Printf("\r🎯 x=%7.1f y=%7.1f   ", m.X, m.Y)
		}
	case web.TypeStyle:
		var m web.StyleMessage
		if json.Unmarshal(data, &m) == nil {
			fmt.Printf("🔴 cursor %dpx %s at (%.0f, %.0f)\n", m.Style.Diameter, m.Style.Color, m.X, m.Y)
		}
	case web.TypeAlert:
		var m web.AlertMessage
		if json.Unmarshal(data, &m) == nil {
			fmt.Printf("🚨 [%s] %s\n", m.Kind, m.Message)
		}
	default:
		fmt.Println(string(data))
	}
}
