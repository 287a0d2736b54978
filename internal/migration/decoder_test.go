package migration

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/mr-tron/base58"
)

// buildPayload assembles a well-formed Migrate event payload.
func buildPayload() []byte {
	buf := make([]byte, 0, EventSize)
	buf = append(buf, MigrateEventDiscriminator[:]...)

	appendU64 := func(v uint64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf = append(buf, b[:]...)
	}
	appendKey := func(fill byte) {
		key := make([]byte, 32)
		for i := range key {
			key[i] = fill
		}
		buf = append(buf, key...)
	}

	appendU64(uint64(1700000000)) // timestamp
	var idx [2]byte
	binary.LittleEndian.PutUint16(idx[:], 7)
	buf = append(buf, idx[:]...) // index
	appendKey(0x01)              // creator
	appendKey(0x02)              // baseMint
	appendKey(0x03)              // quoteMint
	buf = append(buf, 6, 9)      // decimals
	appendU64(1000)              // baseAmountIn
	appendU64(2000)              // quoteAmountIn
	appendU64(3000)              // poolBaseAmount
	appendU64(4000)              // poolQuoteAmount
	appendU64(500)               // minimumLiquidity
	appendU64(600)               // initialLiquidity
	appendU64(700)               // lpTokenAmountOut
	buf = append(buf, 254)       // poolBump
	appendKey(0x04)              // pool
	appendKey(0x05)              // lpMint
	appendKey(0x06)              // userBaseTokenAccount
	appendKey(0x07)              // userQuoteTokenAccount

	return buf
}

func repeatedKey(fill byte) string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = fill
	}
	return base58.Encode(key)
}

func TestDecodeMigrateEvent(t *testing.T) {
	payload := buildPayload()

	if len(payload) != EventSize {
		t.Fatalf("test payload is %d bytes, want %d", len(payload), EventSize)
	}

	ev, err := DecodeMigrateEvent(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if ev.Timestamp != 1700000000 {
		t.Errorf("timestamp = %d, want 1700000000", ev.Timestamp)
	}
	if ev.Index != 7 {
		t.Errorf("index = %d, want 7", ev.Index)
	}
	if ev.Creator != repeatedKey(0x01) {
		t.Errorf("creator = %s, want %s", ev.Creator, repeatedKey(0x01))
	}
	if ev.BaseMint != repeatedKey(0x02) {
		t.Errorf("baseMint = %s, want %s", ev.BaseMint, repeatedKey(0x02))
	}
	if ev.QuoteMint != repeatedKey(0x03) {
		t.Errorf("quoteMint = %s, want %s", ev.QuoteMint, repeatedKey(0x03))
	}
	if ev.BaseMintDecimals != 6 || ev.QuoteMintDecimals != 9 {
		t.Errorf("decimals = %d/%d, want 6/9", ev.BaseMintDecimals, ev.QuoteMintDecimals)
	}
	if ev.BaseAmountIn != 1000 || ev.QuoteAmountIn != 2000 {
		t.Errorf("amounts in = %d/%d, want 1000/2000", ev.BaseAmountIn, ev.QuoteAmountIn)
	}
	if ev.PoolBaseAmount != 3000 || ev.PoolQuoteAmount != 4000 {
		t.Errorf("pool amounts = %d/%d, want 3000/4000", ev.PoolBaseAmount, ev.PoolQuoteAmount)
	}
	if ev.MinimumLiquidity != 500 || ev.InitialLiquidity != 600 {
		t.Errorf("liquidity = %d/%d, want 500/600", ev.MinimumLiquidity, ev.InitialLiquidity)
	}
	if ev.LPTokenAmountOut != 700 {
		t.Errorf("lpTokenAmountOut = %d, want 700", ev.LPTokenAmountOut)
	}
	if ev.PoolBump != 254 {
		t.Errorf("poolBump = %d, want 254", ev.PoolBump)
	}
	if ev.Pool != repeatedKey(0x04) {
		t.Errorf("pool = %s, want %s", ev.Pool, repeatedKey(0x04))
	}
	if ev.LPMint != repeatedKey(0x05) {
		t.Errorf("lpMint = %s, want %s", ev.LPMint, repeatedKey(0x05))
	}
	if ev.UserBaseTokenAccount != repeatedKey(0x06) {
		t.Errorf("userBaseTokenAccount = %s", ev.UserBaseTokenAccount)
	}
	if ev.UserQuoteTokenAccount != repeatedKey(0x07) {
		t.Errorf("userQuoteTokenAccount = %s", ev.UserQuoteTokenAccount)
	}
}

func TestDecodeMigrateEvent_Deterministic(t *testing.T) {
	payload := buildPayload()

	first, err := DecodeMigrateEvent(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	second, err := DecodeMigrateEvent(payload)
	if err != nil {
		t.Fatalf("second decode failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("decoding the same payload twice produced different records")
	}
}

func TestDecodeMigrateEvent_TooShort(t *testing.T) {
	for _, n := range []int{0, 1, 7} {
		_, err := DecodeMigrateEvent(make([]byte, n))
		if !errors.Is(err, ErrTooShort) {
			t.Errorf("len=%d: err = %v, want ErrTooShort", n, err)
		}
	}
}

func TestDecodeMigrateEvent_BadDiscriminator(t *testing.T) {
	payload := buildPayload()
	payload[0] ^= 0xff

	_, err := DecodeMigrateEvent(payload)
	if !errors.Is(err, ErrBadDiscriminator) {
		t.Fatalf("err = %v, want ErrBadDiscriminator", err)
	}
}

func TestDecodeMigrateEvent_Truncated(t *testing.T) {
	payload := buildPayload()

	// Any cut below the full size must fail with TruncatedError,
	// never return a partial record.
	for _, cut := range []int{9, 17, 50, 100, EventSize - 1} {
		ev, err := DecodeMigrateEvent(payload[:cut])
		if ev != nil {
			t.Fatalf("cut=%d: got partial record", cut)
		}
		var truncated *TruncatedError
		if !errors.As(err, &truncated) {
			t.Fatalf("cut=%d: err = %v, want TruncatedError", cut, err)
		}
		if truncated.Offset > cut {
			t.Errorf("cut=%d: reported offset %d beyond payload", cut, truncated.Offset)
		}
	}
}
