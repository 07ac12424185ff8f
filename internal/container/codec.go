package container

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. The same manifest block always
// produces identical container bytes.
var encMode cbor.EncMode

// decMode accepts standard CBOR; unknown fields are ignored for
// forward compatibility with newer block layouts.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("container: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("container: CBOR decoder initialization failed: " + err.Error())
	}
}

func marshalBlock(b *Block) ([]byte, error) {
	return encMode.Marshal(b)
}

func unmarshalBlock(data []byte) (*Block, error) {
	var b Block
	if err := decMode.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
