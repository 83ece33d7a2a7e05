package server

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *WSController) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "server.ws").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "server.ws").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "server.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "server.ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *WSController) readPump(ctx context.Context, sess *wsSession) {
	defer func() {
		log.Info().Str("module", "server.ws").Str("sid", string(sess.sid)).Msg("readPump closing")
		// Unexpected closes count as leaving the room.
		ctl.handleLeave(sess)
		sess.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "server.ws").Str("sid", string(sess.sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := sess.conn.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "server.ws").Str("sid", string(sess.sid)).Msg("readPump read error")
				return
			}
			ctl.handleMessage(sess, data)
		}
	}
}
