package relay

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strangerchat/server/internal/moderation"
	"github.com/strangerchat/server/internal/protocol"
)

type pairs map[string]string

func (p pairs) PartnerOf(endpoint string) (string, bool) {
	partner, ok := p[endpoint]
	return partner, ok
}

func newPairs(couples ...[2]string) pairs {
	p := pairs{}
	for _, c := range couples {
		p[c[0]] = c[1]
		p[c[1]] = c[0]
	}
	return p
}

type sent struct {
	to  string
	msg map[string]json.RawMessage
}

type recorder struct {
	mu   sync.Mutex
	out  []sent
	fail map[string]bool
}

func (r *recorder) Send(endpoint string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[endpoint] {
		return errors.New("outbox full")
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	r.out = append(r.out, sent{to: endpoint, msg: m})
	return nil
}

func (r *recorder) to(endpoint string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []sent
	for _, s := range r.out {
		if s.to == endpoint {
			res = append(res, s)
		}
	}
	return res
}

func str(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func TestChat_DeliveredToPartnerOnly(t *testing.T) {
	rec := &recorder{}
	r := New(newPairs([2]string{"A", "B"}, [2]string{"C", "D"}), rec, moderation.NewMasker(), 0)

	ok, err := r.Chat("A", "hello", 1718000000000)
	require.NoError(t, err)
	require.True(t, ok)

	got := rec.to("B")
	require.Len(t, got, 1)
	assert.Equal(t, protocol.TypeReceiveMessage, str(t, got[0].msg["type"]))
	assert.Equal(t, "hello", str(t, got[0].msg["message"]))
	assert.Equal(t, "A", str(t, got[0].msg["senderId"]))
	assert.JSONEq(t, `1718000000000`, string(got[0].msg["timestamp"]))

	assert.Empty(t, rec.to("A"))
	assert.Empty(t, rec.to("C"))
	assert.Empty(t, rec.to("D"))
}

func TestChat_Masked(t *testing.T) {
	rec := &recorder{}
	r := New(newPairs([2]string{"A", "B"}), rec, moderation.NewMasker(), 0)

	_, err := r.Chat("A", "this is a SCAM", 1)
	require.NoError(t, err)

	got := rec.to("B")
	require.Len(t, got, 1)
	assert.Equal(t, "this is a ****", str(t, got[0].msg["message"]))
}

func TestChat_NilMaskerPassesThrough(t *testing.T) {
	rec := &recorder{}
	r := New(newPairs([2]string{"A", "B"}), rec, nil, 0)

	_, err := r.Chat("A", "spam", 1)
	require.NoError(t, err)
	assert.Equal(t, "spam", str(t, rec.to("B")[0].msg["message"]))
}

func TestChat_NoPartnerIsSilent(t *testing.T) {
	rec := &recorder{}
	r := New(newPairs(), rec, nil, 0)

	ok, err := r.Chat("lonely", "anyone?", 1)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, rec.out)
}

func TestChat_Rejected(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"empty", "", ErrEmptyMessage},
		{"invalid utf8", "bad \xff byte", ErrInvalidUTF8},
		{"too long", strings.Repeat("a", 11), ErrMessageTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			r := New(newPairs([2]string{"A", "B"}), rec, nil, 10)

			ok, err := r.Chat("A", tt.text, 1)
			assert.False(t, ok)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, rec.out)
		})
	}
}

func TestChat_LimitCountsCharacters(t *testing.T) {
	rec := &recorder{}
	r := New(newPairs([2]string{"A", "B"}), rec, nil, 5)

	ok, err := r.Chat("A", "héllo", 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTyping(t *testing.T) {
	rec := &recorder{}
	r := New(newPairs([2]string{"A", "B"}), rec, nil, 0)

	assert.True(t, r.Typing("B", true))
	assert.True(t, r.Typing("B", false))
	assert.False(t, r.Typing("nobody", true))

	got := rec.to("A")
	require.Len(t, got, 2)
	assert.Equal(t, protocol.TypePartnerTyping, str(t, got[0].msg["type"]))
	assert.Equal(t, protocol.TypePartnerStoppedTyping, str(t, got[1].msg["type"]))
}

func TestSignal_ForwardsVerbatimWithSender(t *testing.T) {
	payload := json.RawMessage(`{"sdp":"v=0\r\nm=video 9 UDP/TLS/RTP/SAVPF 96","type":"offer","weird":[null,true]}`)

	tests := []struct {
		kind  string
		field string
	}{
		{KindOffer, "offer"},
		{KindAnswer, "answer"},
		{KindICECandidate, "candidate"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rec := &recorder{}
			r := New(newPairs([2]string{"A", "B"}), rec, nil, 0)

			ok, err := r.Signal("A", tt.kind, payload)
			require.NoError(t, err)
			require.True(t, ok)

			got := rec.to("B")
			require.Len(t, got, 1)
			assert.Equal(t, tt.kind, str(t, got[0].msg["type"]))
			assert.Equal(t, "A", str(t, got[0].msg["from"]))
			assert.JSONEq(t, string(payload), string(got[0].msg[tt.field]))
		})
	}
}

func TestSignal_UnknownKind(t *testing.T) {
	rec := &recorder{}
	r := New(newPairs([2]string{"A", "B"}), rec, nil, 0)

	ok, err := r.Signal("A", "video_offer", json.RawMessage(`{}`))
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnknownSignal)
	assert.Empty(t, rec.out)
}

func TestSignal_NoPartner(t *testing.T) {
	rec := &recorder{}
	r := New(newPairs(), rec, nil, 0)

	ok, err := r.Signal("A", KindICECandidate, json.RawMessage(`{}`))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSendFailureReportsUndelivered(t *testing.T) {
	rec := &recorder{fail: map[string]bool{"B": true}}
	r := New(newPairs([2]string{"A", "B"}), rec, nil, 0)

	ok, err := r.Chat("A", "hi", 1)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateMessage_DefaultLimit(t *testing.T) {
	assert.NoError(t, ValidateMessage(strings.Repeat("x", DefaultMaxMessageChars), 0))
	assert.ErrorIs(t, ValidateMessage(strings.Repeat("x", DefaultMaxMessageChars+1), 0), ErrMessageTooLong)
}
