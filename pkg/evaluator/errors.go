package evaluator

import "errors"

var errMaxJudgeDepth = errors.New("evaluator: judge reentrancy depth exceeded, refusing judge-of-judge call")
