package service

import "golang.org/x/exp/slices"

// firstValid answers with the first valid move after an internal error.
func firstValid(req Request, cause error) Decision {
	return Decision{
		Move:   req.ValidMoves[0],
		Source: SourceFallback,
		Err:    cause,
	}
}

// randomValid picks any valid move when the engine has no usable answer.
func (s *Service) randomValid(moves []int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return moves[s.rng.Intn(len(moves))]
}

func contains(moves []int, col int) bool {
	return slices.Contains(moves, col)
}
