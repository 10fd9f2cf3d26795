package transport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rumorcore/internal/rumor"
)

func TestEnvelope_MarshalUnmarshalRoundTrip(t *testing.T) {
	env := NewEnvelope(1, 2, rumor.NewPush(7, 3))

	data, err := env.Marshal()
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, env.From, back.From)
	require.Equal(t, env.To, back.To)

	msg, err := back.Message()
	require.NoError(t, err)
	require.Equal(t, rumor.NewPush(7, 3), msg)
}

func TestEnvelope_EmptyVariantsRoundTrip(t *testing.T) {
	for _, msg := range []rumor.Message{rumor.NewEmptyPush(), rumor.NewEmptyPull()} {
		env := NewEnvelope(1, 2, msg)
		data, err := env.Marshal()
		require.NoError(t, err)
		back, err := Unmarshal(data)
		require.NoError(t, err)
		got, err := back.Message()
		require.NoError(t, err)
		require.Equal(t, msg, got)
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	env := NewEnvelope(1, 2, rumor.NewPull(5, 1))
	signed, err := Sign(env, "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, signed.Signature)

	ok, err := Verify(signed, "s3cret")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerify_RejectsTamperedEnvelope(t *testing.T) {
	env := NewEnvelope(1, 2, rumor.NewPull(5, 1))
	signed, err := Sign(env, "s3cret")
	require.NoError(t, err)

	signed.Msg.Age = 99 // tamper after signing

	ok, err := Verify(signed, "s3cret")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerify_EmptySecretSkipsCheck(t *testing.T) {
	env := NewEnvelope(1, 2, rumor.NewPull(5, 1))
	ok, err := Verify(env, "")
	require.NoError(t, err)
	require.True(t, ok, "no configured secret means unsigned envelopes are accepted")
}
