package shogi

// BoardSize is the number of rows and columns on the board.
const BoardSize = 9

// Player is a side of the game. Black (sente) moves first.
type Player int

const (
	Black Player = iota
	White
)

// Opponent returns the other side.
func (p Player) Opponent() Player {
	if p == Black {
		return White
	}
	return Black
}

func (p Player) String() string {
	if p == Black {
		return "black"
	}
	return "white"
}

// forward is the row delta of one step toward the opponent's camp.
func (p Player) forward() int {
	if p == Black {
		return -1
	}
	return 1
}

// inPromotionZone reports whether row lies in the three ranks nearest p's opponent.
func (p Player) inPromotionZone(row int) bool {
	if p == Black {
		return row >= 0 && row <= 2
	}
	return row >= 6 && row <= 8
}

// PieceType is a piece kind without its promotion state.
type PieceType int

const (
	King PieceType = iota
	Rook
	Bishop
	Gold
	Silver
	Knight
	Lance
	Pawn
)

// Promotable reports whether a piece of this type may ever promote.
// King and gold never do.
func (t PieceType) Promotable() bool {
	switch t {
	case Rook, Bishop, Silver, Knight, Lance, Pawn:
		return true
	default:
		return false
	}
}

func (t PieceType) String() string {
	switch t {
	case King:
		return "king"
	case Rook:
		return "rook"
	case Bishop:
		return "bishop"
	case Gold:
		return "gold"
	case Silver:
		return "silver"
	case Knight:
		return "knight"
	case Lance:
		return "lance"
	case Pawn:
		return "pawn"
	default:
		return "unknown"
	}
}

// Piece is a piece on the board. Promoted is only ever set for promotable
// types.
type Piece struct {
	Type     PieceType
	Owner    Player
	Promoted bool
}

// Position is a board square. Row 0 is white's back rank and column 0 is
// USI file 1.
type Position struct {
	Row int
	Col int
}

// Inside reports whether p is on the board.
func (p Position) Inside() bool {
	return p.Row >= 0 && p.Row < BoardSize && p.Col >= 0 && p.Col < BoardSize
}

func (p Position) add(v vector) Position {
	return Position{Row: p.Row + v.row, Col: p.Col + v.col}
}

// Move is either a BoardMove or a DropMove.
type Move interface {
	// Dest is the square the move lands on.
	Dest() Position
	// Mover is the piece being moved or dropped, as it was before the move.
	Mover() Piece
	isMove()
}

// BoardMove relocates a piece already on the board.
type BoardMove struct {
	From    Position
	To      Position
	Piece   Piece
	Promote bool
	// Captured is the piece standing on To when the move was generated, if any.
	Captured *Piece
}

func (m BoardMove) Dest() Position { return m.To }
func (m BoardMove) Mover() Piece   { return m.Piece }
func (BoardMove) isMove()          {}

// DropMove places a piece from the mover's hand onto an empty square.
// The dropped type is Piece.Type.
type DropMove struct {
	To    Position
	Piece Piece
}

func (m DropMove) Dest() Position { return m.To }
func (m DropMove) Mover() Piece   { return m.Piece }
func (DropMove) isMove()          {}
