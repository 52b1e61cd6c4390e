package buddyheap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSetClearBit(t *testing.T) {
	buf := make([]byte, 2)

	setBit(buf, 0)
	assert.Equal(t, byte(0x80), buf[0])
	assert.True(t, getBit(buf, 0))

	setBit(buf, 7)
	assert.Equal(t, byte(0x81), buf[0])

	setBit(buf, 8)
	assert.Equal(t, byte(0x80), buf[1])
	assert.True(t, getBit(buf, 8))
	assert.False(t, getBit(buf, 9))

	clearBit(buf, 0)
	assert.Equal(t, byte(0x01), buf[0])
	assert.False(t, getBit(buf, 0))
}

func TestOnesMask(t *testing.T) {
	assert.Equal(t, byte(0x00), onesMask(0))
	assert.Equal(t, byte(0x01), onesMask(1))
	assert.Equal(t, byte(0x03), onesMask(2))
	assert.Equal(t, byte(0xff), onesMask(8))
}

func TestMarkBitsSingleByte(t *testing.T) {
	buf := make([]byte, 1)

	markBits(buf, 2, 3, true)
	assert.Equal(t, byte(0b00111000), buf[0])

	markBits(buf, 3, 1, false)
	assert.Equal(t, byte(0b00101000), buf[0])
}

func TestMarkBitsWholeByte(t *testing.T) {
	buf := make([]byte, 1)
	markBits(buf, 0, 8, true)
	assert.Equal(t, byte(0xff), buf[0])

	markBits(buf, 0, 8, false)
	assert.Equal(t, byte(0x00), buf[0])
}

func TestMarkBitsAcrossBytes(t *testing.T) {
	buf := make([]byte, 3)

	// bits [4, 20) set: tail of byte0, all of byte1, head of byte2.
	markBits(buf, 4, 16, true)
	assert.Equal(t, byte(0x0f), buf[0])
	assert.Equal(t, byte(0xff), buf[1])
	assert.Equal(t, byte(0xf0), buf[2])

	markBits(buf, 4, 16, false)
	assert.Equal(t, byte(0x00), buf[0])
	assert.Equal(t, byte(0x00), buf[1])
	assert.Equal(t, byte(0x00), buf[2])
}

func TestMarkBitsSpansManyFullBytes(t *testing.T) {
	buf := make([]byte, 4)
	markBits(buf, 0, 32, true)
	for _, b := range buf {
		assert.Equal(t, byte(0xff), b)
	}

	markBits(buf, 8, 16, false)
	assert.Equal(t, byte(0xff), buf[0])
	assert.Equal(t, byte(0x00), buf[1])
	assert.Equal(t, byte(0x00), buf[2])
	assert.Equal(t, byte(0xff), buf[3])
}

func TestMarkBitsZeroIsNoop(t *testing.T) {
	buf := []byte{0xaa}
	markBits(buf, 2, 0, true)
	assert.Equal(t, byte(0xaa), buf[0])
}
