package bufferutil

import (
	"encoding/hex"
	"errors"

	"github.com/vulpemventures/go-elements/elementsutil"
)

const (
	explicitPrefix = 0x01
	assetLen       = 33
	valueLen       = 9
)

// ErrNotExplicit is returned when decoding a blinded asset or value.
var ErrNotExplicit = errors.New("buffer is not an explicit asset or value")

// AssetHashToBytes returns the explicit (unconfidential) serialization of the
// given asset hash.
func AssetHashToBytes(str string) ([]byte, error) {
	buffer, err := hex.DecodeString(str)
	if err != nil {
		return nil, err
	}
	buffer = elementsutil.ReverseBytes(buffer)
	buffer = append([]byte{0x01}, buffer...)
	return buffer, nil
}

// AssetHashFromBytes is the inverse of AssetHashToBytes. Asset commitments
// of confidential outputs are rejected.
func AssetHashFromBytes(buffer []byte) (string, error) {
	if len(buffer) != assetLen || buffer[0] != explicitPrefix {
		return "", ErrNotExplicit
	}
	asset := append([]byte(nil), buffer[1:]...)
	return hex.EncodeToString(elementsutil.ReverseBytes(asset)), nil
}

func ValueToBytes(val uint64) ([]byte, error) {
	return elementsutil.ValueToBytes(val)
}

// ValueFromBytes is the inverse of ValueToBytes. Value commitments of
// confidential outputs are rejected.
func ValueFromBytes(buffer []byte) (uint64, error) {
	if len(buffer) != valueLen || buffer[0] != explicitPrefix {
		return 0, ErrNotExplicit
	}
	return elementsutil.ValueFromBytes(buffer)
}

// IsConfidential returns whether either the asset or the value of an output
// is blinded.
func IsConfidential(asset, value []byte) bool {
	return len(asset) == 0 || asset[0] != explicitPrefix ||
		len(value) == 0 || value[0] != explicitPrefix
}

func TxIDFromBytes(buffer []byte) string {
	return hex.EncodeToString(elementsutil.ReverseBytes(buffer))
}

func TxIDToBytes(str string) ([]byte, error) {
	buffer, err := hex.DecodeString(str)
	if err != nil {
		return nil, err
	}
	return elementsutil.ReverseBytes(buffer), nil
}
