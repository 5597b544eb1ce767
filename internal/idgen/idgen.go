// Package idgen mints short patient identifiers of the form P + 6 digits.
//
// Identifiers are sampled, not sequenced: the generator never looks at the
// record collection, so uniqueness is only statistical. Callers that need a
// hard guarantee check membership themselves (see repository.SlotPatientsRepository).
package idgen

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"sync"
)

// Space 标识取值空间 [0, Space)
const Space = 1_000_000

var pattern = regexp.MustCompile(`^P\d{6}$`)

type Generator interface {
	Generate() string
}

// Random 基于均匀随机数的生成器
type Random struct {
	intn func(n int) int
}

// NewRandom 使用全局 math/rand/v2 源
func NewRandom() *Random {
	return &Random{intn: rand.IntN}
}

// NewSeeded 使用固定种子的生成器（测试、可复现场景）
func NewSeeded(seed uint64) *Random {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var mu sync.Mutex
	return &Random{intn: func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return r.IntN(n)
	}}
}

func (g *Random) Generate() string {
	return Format(g.intn(Space))
}

// Format 将 [0, Space) 内的数字格式化为标识
func Format(n int) string {
	return fmt.Sprintf("P%06d", n)
}

// Valid 判断字符串是否符合标识格式
func Valid(id string) bool {
	return pattern.MatchString(id)
}
