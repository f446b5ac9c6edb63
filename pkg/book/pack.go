package book

import (
	"errors"
	"fmt"

	"kogoma/pkg/shogi"
)

var ErrNotPackable = errors.New("position does not hold the standard 40 pieces")

// Key is a 256-bit Huffman encoding of a position: side to move, both king
// squares, then every other square and both hands. It only fits positions
// holding exactly the standard set of pieces, which every game from the
// initial setup keeps until a king is captured.
type Key [4]uint64

type huffCode struct {
	bits uint64
	n    int
}

// Bits are written least significant first, so a board code starts with 1
// and the empty square is a single 0.
var (
	emptyCode  = huffCode{0b0, 1}
	boardCodes = map[shogi.PieceType]huffCode{
		shogi.Pawn:   {0b01, 2},
		shogi.Lance:  {0b0011, 4},
		shogi.Knight: {0b1011, 4},
		shogi.Silver: {0b0111, 4},
		shogi.Gold:   {0b01111, 5},
		shogi.Bishop: {0b011111, 6},
		shogi.Rook:   {0b111111, 6},
	}
	packHandOrder = []shogi.PieceType{shogi.Pawn, shogi.Lance, shogi.Knight, shogi.Silver, shogi.Gold, shogi.Bishop, shogi.Rook}
)

// handCode drops the leading 1 that marks an occupied square.
func handCode(t shogi.PieceType) huffCode {
	c := boardCodes[t]
	return huffCode{c.bits >> 1, c.n - 1}
}

type decodeKey struct {
	bits uint64
	n    int
}

var boardDecode, handDecode = buildDecoders()

func buildDecoders() (map[decodeKey]shogi.PieceType, map[decodeKey]shogi.PieceType) {
	board := make(map[decodeKey]shogi.PieceType, len(boardCodes))
	hand := make(map[decodeKey]shogi.PieceType, len(boardCodes))
	for t, c := range boardCodes {
		board[decodeKey(c)] = t
		hand[decodeKey(handCode(t))] = t
	}
	return board, hand
}

// Pack encodes s. Positions with a missing king or a non-standard piece set
// return ErrNotPackable.
func Pack(s shogi.State) (Key, error) {
	var w bitWriter
	w.writeBool(s.Turn() == shogi.White)

	kings := [2]int{-1, -1}
	for idx := 0; idx < 81; idx++ {
		p, ok := s.At(indexPosition(idx))
		if !ok || p.Type != shogi.King {
			continue
		}
		if kings[p.Owner] != -1 {
			return Key{}, fmt.Errorf("two %s kings: %w", p.Owner, ErrNotPackable)
		}
		kings[p.Owner] = idx
	}
	if kings[shogi.Black] == -1 || kings[shogi.White] == -1 {
		return Key{}, fmt.Errorf("missing king: %w", ErrNotPackable)
	}
	w.writeBits(uint64(kings[shogi.Black]), 7)
	w.writeBits(uint64(kings[shogi.White]), 7)

	for idx := 0; idx < 81; idx++ {
		if idx == kings[shogi.Black] || idx == kings[shogi.White] {
			continue
		}
		p, ok := s.At(indexPosition(idx))
		if !ok {
			w.writeCode(emptyCode)
			continue
		}
		w.writeCode(boardCodes[p.Type])
		w.writeBool(p.Owner == shogi.White)
		if p.Type.Promotable() {
			w.writeBool(p.Promoted)
		}
	}

	for _, owner := range []shogi.Player{shogi.Black, shogi.White} {
		counts := make(map[shogi.PieceType]int)
		for _, t := range s.Hand(owner) {
			counts[t]++
		}
		for _, t := range packHandOrder {
			for i := 0; i < counts[t]; i++ {
				w.writeCode(handCode(t))
				w.writeBool(owner == shogi.White)
				if t.Promotable() {
					w.writeBool(false)
				}
			}
		}
	}

	if w.overflow || w.pos != 256 {
		return Key{}, fmt.Errorf("%d bits: %w", w.pos, ErrNotPackable)
	}
	return Key(w.words), nil
}

// Unpack decodes a Key produced by Pack.
func Unpack(k Key) (shogi.State, error) {
	r := bitReader{words: k}
	s := shogi.NewEmptyState()
	if r.readBool() {
		s = s.WithTurn(shogi.White)
	}
	blackKing, whiteKing := int(r.readBits(7)), int(r.readBits(7))
	if blackKing == whiteKing || blackKing >= 81 || whiteKing >= 81 {
		return shogi.State{}, fmt.Errorf("invalid king squares %d/%d", blackKing, whiteKing)
	}
	s = s.WithPiece(indexPosition(blackKing), shogi.Piece{Type: shogi.King, Owner: shogi.Black})
	s = s.WithPiece(indexPosition(whiteKing), shogi.Piece{Type: shogi.King, Owner: shogi.White})

	for idx := 0; idx < 81; idx++ {
		if idx == blackKing || idx == whiteKing {
			continue
		}
		if !r.peekSet() {
			r.readBits(1)
			continue
		}
		t, ok := r.readCode(boardDecode)
		if !ok {
			return shogi.State{}, fmt.Errorf("invalid board code at square %d", idx)
		}
		p := shogi.Piece{Type: t, Owner: ownerOf(r.readBool())}
		if t.Promotable() {
			p.Promoted = r.readBool()
		}
		s = s.WithPiece(indexPosition(idx), p)
	}

	var hands [2][]shogi.PieceType
	for r.pos < 256 {
		t, ok := r.readCode(handDecode)
		if !ok {
			return shogi.State{}, errors.New("invalid hand code")
		}
		owner := ownerOf(r.readBool())
		if t.Promotable() && r.readBool() {
			return shogi.State{}, fmt.Errorf("promoted %s in hand", t)
		}
		hands[owner] = append(hands[owner], t)
	}
	if r.underflow {
		return shogi.State{}, errors.New("truncated key")
	}
	return s.WithHand(shogi.Black, hands[shogi.Black]...).WithHand(shogi.White, hands[shogi.White]...), nil
}

func indexPosition(idx int) shogi.Position {
	return shogi.Position{Row: idx / shogi.BoardSize, Col: idx % shogi.BoardSize}
}

func ownerOf(white bool) shogi.Player {
	if white {
		return shogi.White
	}
	return shogi.Black
}

type bitWriter struct {
	words    [4]uint64
	pos      int
	overflow bool
}

func (w *bitWriter) writeBit(bit uint64) {
	if w.pos >= 256 {
		w.overflow = true
		return
	}
	w.words[w.pos/64] |= (bit & 1) << uint(w.pos%64)
	w.pos++
}

func (w *bitWriter) writeBits(value uint64, n int) {
	for i := 0; i < n; i++ {
		w.writeBit(value >> i)
	}
}

func (w *bitWriter) writeBool(b bool) {
	if b {
		w.writeBit(1)
	} else {
		w.writeBit(0)
	}
}

func (w *bitWriter) writeCode(c huffCode) {
	w.writeBits(c.bits, c.n)
}

type bitReader struct {
	words     [4]uint64
	pos       int
	underflow bool
}

func (r *bitReader) readBit() uint64 {
	if r.pos >= 256 {
		r.underflow = true
		return 0
	}
	bit := (r.words[r.pos/64] >> uint(r.pos%64)) & 1
	r.pos++
	return bit
}

func (r *bitReader) peekSet() bool {
	if r.pos >= 256 {
		return false
	}
	return (r.words[r.pos/64]>>uint(r.pos%64))&1 == 1
}

func (r *bitReader) readBits(n int) uint64 {
	var value uint64
	for i := 0; i < n; i++ {
		value |= r.readBit() << i
	}
	return value
}

func (r *bitReader) readBool() bool {
	return r.readBit() == 1
}

// readCode consumes bits until they form a code in table.
func (r *bitReader) readCode(table map[decodeKey]shogi.PieceType) (shogi.PieceType, bool) {
	var value uint64
	for n := 1; n <= 6; n++ {
		value |= r.readBit() << (n - 1)
		if t, ok := table[decodeKey{value, n}]; ok {
			return t, true
		}
		if r.underflow {
			return 0, false
		}
	}
	return 0, false
}
