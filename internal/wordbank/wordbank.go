package wordbank

import (
	"bufio"
	"math/rand"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Entry 是词库中的一个词条
// 词库文件每行的格式为 "Category:Word"
type Entry struct {
	Text     string
	Category string
}

// FileBank 是文件加载的内存词库
// 加载后只读，ThreeWords 可以被任意协程并发调用
type FileBank struct {
	entries []Entry
}

// LoadFileBank 从词库文件构建内存词库
// 不符合 "Category:Word" 格式的行会被跳过
func LoadFileBank(path string) (*FileBank, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "打开词库文件 %s 失败", path)
	}
	defer file.Close()

	entries := make([]Entry, 0)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		entries = append(entries, Entry{
			Category: strings.TrimSpace(parts[0]),
			Text:     strings.TrimSpace(parts[1]),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "读取词库文件 %s 失败", path)
	}

	zap.S().Infof("词库加载完成，共 %d 个词", len(entries))

	return &FileBank{entries: entries}, nil
}

// ThreeWords 从全部词池中随机选出最多 3 个不在排除集里的词
// 当前排除条件下不足 3 个时返回剩余的全部，由调用方决定是否清空排除重试
func (fb *FileBank) ThreeWords(excluded []string) []string {
	excludedSet := make(map[string]struct{}, len(excluded))
	for _, w := range excluded {
		excludedSet[strings.ToLower(w)] = struct{}{}
	}

	candidates := make([]string, 0, len(fb.entries))
	for _, e := range fb.entries {
		if _, skip := excludedSet[strings.ToLower(e.Text)]; !skip {
			candidates = append(candidates, e.Text)
		}
	}

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	if len(candidates) > 3 {
		candidates = candidates[:3]
	}

	return candidates
}
