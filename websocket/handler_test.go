package websocket

import (
	"testing"
	"time"

	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/layouts/equat"
	"github.com/aukilabs/skymap/models"
	"github.com/aukilabs/skymap/projection"
	"github.com/golang/geo/s1"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestSkyMap(t *testing.T) *models.SkyMap {
	m, err := models.New(equat.New(equat.Config{DecMin: -5, DecMax: 5, TractWidth: 4}), models.Config{
		PixelScale:       10 * s1.Degree / 3600,
		PatchInnerWidth:  1000,
		PatchInnerHeight: 1000,
		PatchBorder:      50,
		Projection:       projection.Gnomonic,
	})
	require.NoError(t, err)
	return m
}

func newTestHandler(m *models.SkyMap, idleTimeout time.Duration) func() Handler {
	return func() Handler {
		var h Handler = &LookupHandler{
			SkyMap:            m,
			ClientIdleTimeout: idleTimeout,
			MaxBatchSize:      8,
		}

		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h, "https://skymap-test.com")
		return h
	}
}

func TestHandlerHandlePing(t *testing.T) {
	client, close := NewTestingEnv(t, newTestHandler(newTestSkyMap(t), time.Minute))
	defer close()

	SendMsg(t, client, MsgTypePing, 1, nil)
	msg := ReceiveMsg(t, client, MsgTypePong)
	require.Equal(t, uint32(1), msg.RequestID)
	require.NotZero(t, msg.Time)
}

func TestHandlerHandleFindTract(t *testing.T) {
	client, close := NewTestingEnv(t, newTestHandler(newTestSkyMap(t), time.Minute))
	defer close()

	SendMsg(t, client, MsgTypeFindTract, 2, FindRequest{Coords: []Coord{
		{RA: 1, Dec: 0},
		{RA: 360, Dec: 4},
		{RA: 6, Dec: -2},
		{RA: 100, Dec: 45},
	}})

	msg := ReceiveMsg(t, client, MsgTypeFindTractResponse)
	require.Equal(t, uint32(2), msg.RequestID)

	var res FindTractResponse
	require.NoError(t, msg.DataTo(&res))
	require.Len(t, res.Results, 4)

	require.Equal(t, 0, res.Results[0].Tract)
	require.NotNil(t, res.Results[0].Patch)
	require.Empty(t, res.Results[0].Error)

	require.Equal(t, 0, res.Results[1].Tract)
	require.InDelta(t, 0, res.Results[1].Coord.RA, 1e-9)

	require.Equal(t, 1, res.Results[2].Tract)

	require.Equal(t, -1, res.Results[3].Tract)
	require.Nil(t, res.Results[3].Patch)
	require.Equal(t, geom.ErrTypeNotFound, res.Results[3].ErrorType)
}

func TestHandlerHandleFindTractPatchList(t *testing.T) {
	client, close := NewTestingEnv(t, newTestHandler(newTestSkyMap(t), time.Minute))
	defer close()

	t.Run("point", func(t *testing.T) {
		SendMsg(t, client, MsgTypeFindTractPatchList, 3, FindRequest{Coords: []Coord{{RA: 2, Dec: 0}}})

		msg := ReceiveMsg(t, client, MsgTypeFindTractPatchListResponse)
		require.Equal(t, uint32(3), msg.RequestID)

		var res FindTractPatchListResponse
		require.NoError(t, msg.DataTo(&res))
		require.Len(t, res.Tracts, 1)
		require.Equal(t, 0, res.Tracts[0].Tract)
		require.Len(t, res.Tracts[0].Patches, 1)
	})

	t.Run("region", func(t *testing.T) {
		SendMsg(t, client, MsgTypeFindTractPatchList, 4, FindRequest{Coords: []Coord{
			{RA: 1, Dec: 1},
			{RA: 3, Dec: -1},
		}})

		msg := ReceiveMsg(t, client, MsgTypeFindTractPatchListResponse)
		require.Equal(t, uint32(4), msg.RequestID)

		var res FindTractPatchListResponse
		require.NoError(t, msg.DataTo(&res))
		require.NotEmpty(t, res.Tracts)
		require.Equal(t, 0, res.Tracts[0].Tract)
	})
}

func TestHandlerErrors(t *testing.T) {
	client, close := NewTestingEnv(t, newTestHandler(newTestSkyMap(t), time.Minute))
	defer close()

	tests := []struct {
		name      string
		send      func()
		requestID uint32
		errType   string
	}{
		{
			name: "unknown message type",
			send: func() {
				SendMsg(t, client, MsgType("subscribe"), 5, nil)
			},
			requestID: 5,
			errType:   ErrTypeMsgUnknown,
		},
		{
			name: "missing data",
			send: func() {
				SendMsg(t, client, MsgTypeFindTract, 6, nil)
			},
			requestID: 6,
			errType:   ErrTypeMsgMalformed,
		},
		{
			name: "batch too large",
			send: func() {
				SendMsg(t, client, MsgTypeFindTract, 7, FindRequest{Coords: make([]Coord, 9)})
			},
			requestID: 7,
			errType:   ErrTypeMsgMalformed,
		},
		{
			name: "invalid coordinate",
			send: func() {
				SendMsg(t, client, MsgTypeFindTractPatchList, 8, FindRequest{Coords: []Coord{{RA: 0, Dec: 95}}})
			},
			requestID: 8,
			errType:   ErrTypeMsgMalformed,
		},
		{
			name: "not a json message",
			send: func() {
				require.NoError(t, websocket.Message.Send(client, "hello"))
			},
			errType: ErrTypeMsgMalformed,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.send()

			msg := ReceiveMsg(t, client, MsgTypeError)
			require.Equal(t, test.requestID, msg.RequestID)

			var res ErrorData
			require.NoError(t, msg.DataTo(&res))
			require.Equal(t, test.errType, res.Type)
			require.NotEmpty(t, res.Error)
		})
	}

	// The connection is still usable after errors.
	SendMsg(t, client, MsgTypePing, 9, nil)
	msg := ReceiveMsg(t, client, MsgTypePong)
	require.Equal(t, uint32(9), msg.RequestID)
}

func TestHandlerIdleTimeout(t *testing.T) {
	client, close := NewTestingEnv(t, newTestHandler(newTestSkyMap(t), time.Millisecond*100))
	defer close()

	client.SetReadDeadline(time.Now().Add(time.Second * 5))
	_, _, err := Receive(client)
	require.Error(t, err)
}

func TestLookupHandlerDefaults(t *testing.T) {
	h := &LookupHandler{}
	require.Equal(t, DefaultIdleTimeout, h.IdleTimeout())
}
