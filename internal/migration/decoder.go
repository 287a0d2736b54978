package migration

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"solana-migration-bot/internal/domain"
)

// MigrateEventDiscriminator is the 8-byte Anchor event discriminator that
// prefixes every Migrate event payload.
var MigrateEventDiscriminator = [8]byte{0xbd, 0x79, 0x9a, 0x1c, 0x8e, 0x31, 0x45, 0x6d}

// EventSize is the exact payload length: discriminator plus 19 fields.
const EventSize = 8 + 8 + 2 + 32 + 32 + 32 + 1 + 1 + 8*7 + 1 + 32 + 32 + 32 + 32 // 301

// Decode errors.
var (
	// ErrTooShort is returned when the payload is shorter than the discriminator.
	ErrTooShort = errors.New("payload too short")

	// ErrBadDiscriminator is returned when the first 8 bytes do not match
	// MigrateEventDiscriminator. No further bytes are consumed.
	ErrBadDiscriminator = errors.New("unexpected event discriminator")
)

// TruncatedError is returned when the payload ends before the field at
// Offset could be read. The partial record is discarded.
type TruncatedError struct {
	Offset int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("payload truncated at offset %d", e.Offset)
}

// cursor walks the payload, failing with TruncatedError on overrun.
type cursor struct {
	data   []byte
	offset int
	err    error
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if c.offset+n > len(c.data) {
		c.err = &TruncatedError{Offset: c.offset}
		return nil
	}
	b := c.data[c.offset : c.offset+n]
	c.offset += n
	return b
}

func (c *cursor) pubkey() string {
	b := c.take(32)
	if b == nil {
		return ""
	}
	return base58.Encode(b)
}

func (c *cursor) u64() uint64 {
	b := c.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (c *cursor) i64() int64 {
	return int64(c.u64())
}

func (c *cursor) u16() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (c *cursor) u8() uint8 {
	b := c.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// DecodeMigrateEvent decodes a Migrate event payload into a MigrationEvent.
// Decoding is all-or-nothing: a short, truncated, or mislabeled payload
// returns an error and no partial record. The function is pure.
func DecodeMigrateEvent(data []byte) (*domain.MigrationEvent, error) {
	if len(data) < 8 {
		return nil, ErrTooShort
	}
	if !bytes.Equal(data[:8], MigrateEventDiscriminator[:]) {
		return nil, ErrBadDiscriminator
	}

	c := &cursor{data: data, offset: 8}

	ev := &domain.MigrationEvent{
		Timestamp:             c.i64(),
		Index:                 c.u16(),
		Creator:               c.pubkey(),
		BaseMint:              c.pubkey(),
		QuoteMint:             c.pubkey(),
		BaseMintDecimals:      c.u8(),
		QuoteMintDecimals:     c.u8(),
		BaseAmountIn:          c.u64(),
		QuoteAmountIn:         c.u64(),
		PoolBaseAmount:        c.u64(),
		PoolQuoteAmount:       c.u64(),
		MinimumLiquidity:      c.u64(),
		InitialLiquidity:      c.u64(),
		LPTokenAmountOut:      c.u64(),
		PoolBump:              c.u8(),
		Pool:                  c.pubkey(),
		LPMint:                c.pubkey(),
		UserBaseTokenAccount:  c.pubkey(),
		UserQuoteTokenAccount: c.pubkey(),
	}
	if c.err != nil {
		return nil, c.err
	}

	return ev, nil
}
