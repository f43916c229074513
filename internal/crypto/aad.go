// Package icrypto builds the additional authenticated data bound into sealed
// values.
package icrypto

import (
	"encoding/binary"
)

const (
	aadValue = "JOBBOARD-KV"
	aadCheck = "JOBBOARD-CHECK"
)

// AADValue binds a sealed value to the storage key it was written under, so
// an envelope copied to another key fails to open.
func AADValue(key string, ver int) []byte {
	return buildAAD(ver, aadValue, key)
}

// AADCheck binds the passphrase check value.
func AADCheck(ver int) []byte {
	return buildAAD(ver, aadCheck)
}

// buildAAD length-prefixes each field and appends ver as a big-endian uint32.
func buildAAD(ver int, fields ...string) []byte {
	var res []byte
	for _, f := range fields {
		res = appendLenPrefix(res, []byte(f))
	}
	return binary.BigEndian.AppendUint32(res, uint32(ver))
}

func appendLenPrefix(b, data []byte) []byte {
	l := make([]byte, 4)
	binary.BigEndian.PutUint32(l, uint32(len(data)))
	b = append(b, l...)
	b = append(b, data...)
	return b
}
