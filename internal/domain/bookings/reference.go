package bookings

import (
	"fmt"

	"github.com/speps/go-hashids/v2"
)

// referenceAlphabet avoids ambiguous characters so staff can read codes
// over the phone.
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// ReferenceEncoder derives the short human-facing code from a booking ID.
type ReferenceEncoder struct {
	h *hashids.HashID
}

func NewReferenceEncoder(salt string) (*ReferenceEncoder, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = 6
	data.Alphabet = referenceAlphabet

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return &ReferenceEncoder{h: h}, nil
}

func (e *ReferenceEncoder) Encode(id int64) (string, error) {
	code, err := e.h.EncodeInt64([]int64{id})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("LB-%s", code), nil
}
