package broadcaster

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"signalexecutor/src/model"
)

func TestDecodeNewSignal(t *testing.T) {
	frame := []byte(`{"type":"NEW_SIGNAL","signal":{"signal_id":"sig-1","symbol":"btcusdt","signal_type":"LONG","order_type":"LIMIT","entry_price":100.5,"stop_loss":95,"take_profit":120,"leverage":10,"created_at":"2025-03-04T10:00:00.123456"}}`)

	in, err := Decode(frame)
	require.NoError(t, err)

	ns, ok := in.(model.NewSignal)
	require.True(t, ok, "got %T", in)
	sig := ns.Signal
	require.Equal(t, "sig-1", sig.SignalID)
	require.Equal(t, "BTCUSDT", sig.Symbol)
	require.Equal(t, model.SignalLong, sig.SignalType)
	require.Equal(t, model.OrderLimit, sig.OrderType)
	require.Equal(t, 100.5, *sig.EntryPrice)
	require.Equal(t, 95.0, *sig.StopLoss)
	require.Equal(t, 120.0, *sig.TakeProfit)
	require.Equal(t, 10, sig.Leverage)
	require.Equal(t, model.StatusActive, sig.Status)
	require.NotNil(t, sig.CreatedAt)
	require.Equal(t, time.Date(2025, 3, 4, 10, 0, 0, 123456000, time.UTC), *sig.CreatedAt)
	require.Nil(t, sig.UpdatedAt)
}

func TestDecodeDefaults(t *testing.T) {
	in, err := Decode([]byte(`{"type":"NEW_SIGNAL","signal":{"signal_id":"s","symbol":"ETHUSDT","signal_type":"SHORT","order_type":"MARKET"}}`))
	require.NoError(t, err)
	sig := in.(model.NewSignal).Signal
	require.Equal(t, 1, sig.Leverage)
	require.Equal(t, model.StatusActive, sig.Status)
	require.Nil(t, sig.EntryPrice)

	in, err = Decode([]byte(`{"type":"CLOSE_SIGNAL","signal_id":"s","symbol":"ETHUSDT"}`))
	require.NoError(t, err)
	require.Equal(t, model.CloseCommand{SignalID: "s", Symbol: "ETHUSDT", Percentage: 100}, in.(model.CloseSignal).Command)
}

func TestDecodeCommands(t *testing.T) {
	in, err := Decode([]byte(`{"type":"CLOSE_SIGNAL","signal_id":"s","symbol":"ETHUSDT","percentage":25}`))
	require.NoError(t, err)
	require.Equal(t, 25.0, in.(model.CloseSignal).Command.Percentage)

	in, err = Decode([]byte(`{"type":"CLOSE_SIGNAL","signal_id":"s","symbol":"ETHUSDT","percentage":150}`))
	require.NoError(t, err)
	require.Equal(t, 100.0, in.(model.CloseSignal).Command.Percentage)

	in, err = Decode([]byte(`{"type":"EDIT_SLTP","signal_id":"s","symbol":"ETHUSDT","take_profit":3500}`))
	require.NoError(t, err)
	edit := in.(model.EditSLTP).Command
	require.Nil(t, edit.StopLoss)
	require.Equal(t, 3500.0, *edit.TakeProfit)

	in, err = Decode([]byte(`{"type":"UPDATE_LEVERAGE","signal_id":"s","symbol":"ETHUSDT","leverage":20}`))
	require.NoError(t, err)
	require.Equal(t, model.LeverageCommand{SignalID: "s", Symbol: "ETHUSDT", Leverage: 20}, in.(model.UpdateLeverage).Command)
}

func TestDecodeUnknownType(t *testing.T) {
	in, err := Decode([]byte(`{"type":"WELCOME","message":"hi"}`))
	require.NoError(t, err)
	require.Equal(t, model.Unknown{Raw: "WELCOME"}, in)
}

func TestDecodeFailures(t *testing.T) {
	cases := []struct {
		name      string
		frame     string
		wantField string
	}{
		{"not json", `hello`, ""},
		{"no type", `{"signal_id":"s"}`, ""},
		{"signal payload missing", `{"type":"NEW_SIGNAL"}`, "signal"},
		{"signal id missing", `{"type":"NEW_SIGNAL","signal":{"symbol":"BTCUSDT","signal_type":"LONG","order_type":"MARKET"}}`, "signal_id"},
		{"symbol missing", `{"type":"NEW_SIGNAL","signal":{"signal_id":"s","signal_type":"LONG","order_type":"MARKET"}}`, "symbol"},
		{"bad side", `{"type":"NEW_SIGNAL","signal":{"signal_id":"s","symbol":"BTCUSDT","signal_type":"UP","order_type":"MARKET"}}`, "signal_type"},
		{"limit without price", `{"type":"NEW_SIGNAL","signal":{"signal_id":"s","symbol":"BTCUSDT","signal_type":"LONG","order_type":"LIMIT"}}`, "entry_price"},
		{"zero leverage", `{"type":"NEW_SIGNAL","signal":{"signal_id":"s","symbol":"BTCUSDT","signal_type":"LONG","order_type":"MARKET","leverage":0}}`, "leverage"},
		{"fractional leverage", `{"type":"UPDATE_LEVERAGE","signal_id":"s","symbol":"BTCUSDT","leverage":2.5}`, "leverage"},
		{"leverage missing", `{"type":"UPDATE_LEVERAGE","signal_id":"s","symbol":"BTCUSDT"}`, "leverage"},
		{"close without symbol", `{"type":"CLOSE_SIGNAL","signal_id":"s"}`, "symbol"},
		{"close zero percent", `{"type":"CLOSE_SIGNAL","signal_id":"s","symbol":"BTCUSDT","percentage":0}`, "percentage"},
		{"edit without id", `{"type":"EDIT_SLTP","symbol":"BTCUSDT"}`, "signal_id"},
		{"bad timestamp", `{"type":"NEW_SIGNAL","signal":{"signal_id":"s","symbol":"BTCUSDT","signal_type":"LONG","order_type":"MARKET","created_at":"yesterday"}}`, "created_at"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := Decode([]byte(tc.frame))
			require.Error(t, err)
			require.Nil(t, in)
			if tc.wantField != "" {
				var fe *FieldError
				require.True(t, errors.As(err, &fe), "got %v", err)
				require.Equal(t, tc.wantField, fe.Field)
			}
		})
	}
}

func TestIsPong(t *testing.T) {
	require.True(t, IsPong([]byte("pong")))
	require.True(t, IsPong([]byte("pong\n")))
	require.False(t, IsPong([]byte(`{"type":"pong"}`)))
}
