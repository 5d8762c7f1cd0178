package crypto

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/rendezvous-server/pkg/types"
)

func TestEd25519_SeedRoundTrip(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, Ed25519SeedSize)
	k1, err := Ed25519KeyFromSeed(seed)
	require.NoError(t, err)
	k2, err := Ed25519KeyFromSeed(k1.Seed())
	require.NoError(t, err)

	assert.True(t, k1.Equals(k2))
	assert.True(t, k1.GetPublic().Equals(k2.GetPublic()))

	_, err = Ed25519KeyFromSeed(seed[:31])
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestSignVerify_AllKeyTypes(t *testing.T) {
	data := []byte("libp2p-routing-state")

	for _, kt := range []KeyType{KeyTypeEd25519, KeyTypeSecp256k1, KeyTypeECDSA, KeyTypeRSA} {
		t.Run(kt.String(), func(t *testing.T) {
			priv, pub, err := GenerateKeyPair(kt)
			require.NoError(t, err)

			sig, err := priv.Sign(data)
			require.NoError(t, err)

			ok, err := pub.Verify(data, sig)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = pub.Verify([]byte("tampered"), sig)
			require.NoError(t, err)
			assert.False(t, ok)

			// protobuf 往返
			enc, err := MarshalPublicKey(pub)
			require.NoError(t, err)
			back, err := UnmarshalPublicKey(enc)
			require.NoError(t, err)
			assert.True(t, pub.Equals(back))
			assert.Equal(t, kt, back.Type())
		})
	}
}

func TestMarshalPublicKey_Layout(t *testing.T) {
	_, pub, err := GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)

	enc, err := MarshalPublicKey(pub)
	require.NoError(t, err)
	require.Len(t, enc, 36)
	assert.Equal(t, []byte{0x08, 0x01, 0x12, 0x20}, enc[:4])

	_, err = MarshalPublicKey(nil)
	assert.ErrorIs(t, err, ErrNilPublicKey)
}

func TestUnmarshalPublicKey_Errors(t *testing.T) {
	_, err := UnmarshalPublicKey([]byte{0x12, 0x00})
	assert.ErrorIs(t, err, ErrUnmarshalFailed)

	_, err = UnmarshalPublicKey([]byte{0x08, 0x09, 0x12, 0x00})
	assert.ErrorIs(t, err, ErrBadKeyType)

	_, err = UnmarshalPublicKey([]byte{0x08, 0x01, 0x12, 0x02, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidKeySize)

	_, err = UnmarshalPublicKey([]byte{0x08})
	assert.ErrorIs(t, err, ErrUnmarshalFailed)
}

func TestPeerIDFromPublicKey(t *testing.T) {
	tests := []struct {
		keyType KeyType
		prefix  string
		inline  bool
	}{
		{KeyTypeEd25519, "12D3KooW", true},
		{KeyTypeSecp256k1, "16Uiu2H", true},
		{KeyTypeECDSA, "Qm", false},
	}
	for _, tt := range tests {
		t.Run(tt.keyType.String(), func(t *testing.T) {
			priv, pub, err := GenerateKeyPair(tt.keyType)
			require.NoError(t, err)

			id, err := PeerIDFromPublicKey(pub)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(id.String(), tt.prefix), id.String())

			fromPriv, err := PeerIDFromPrivateKey(priv)
			require.NoError(t, err)
			assert.Equal(t, id, fromPriv)
			assert.NoError(t, VerifyPeerID(pub, id))

			inlined, err := PublicKeyFromPeerID(id)
			if tt.inline {
				require.NoError(t, err)
				assert.True(t, pub.Equals(inlined))
			} else {
				assert.ErrorIs(t, err, ErrInvalidPublicKey)
			}

			decoded, err := types.Decode(id.String())
			require.NoError(t, err)
			assert.Equal(t, id, decoded)
		})
	}
}

func TestVerifyPeerID_Mismatch(t *testing.T) {
	_, pub1, err := GenerateKeyPair(KeyTypeEd25519)
	require.NoError(t, err)
	_, pub2, err := GenerateKeyPair(KeyTypeEd25519)
	require.NoError(t, err)

	id2, err := PeerIDFromPublicKey(pub2)
	require.NoError(t, err)
	assert.ErrorIs(t, VerifyPeerID(pub1, id2), ErrPeerIDMismatch)
}

func TestKeyEqual_AcrossTypes(t *testing.T) {
	_, ed, err := GenerateKeyPair(KeyTypeEd25519)
	require.NoError(t, err)
	_, sk, err := GenerateKeyPair(KeyTypeSecp256k1)
	require.NoError(t, err)

	assert.False(t, ed.Equals(sk))
	assert.False(t, KeyEqual(ed, nil))
	assert.True(t, KeyEqual(nil, nil))
}

func TestGenerateRSAKey_TooSmall(t *testing.T) {
	_, _, err := GenerateRSAKey(1024, rand.Reader)
	assert.ErrorIs(t, err, ErrRSAKeyTooSmall)
}
