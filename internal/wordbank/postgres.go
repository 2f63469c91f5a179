package wordbank

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PostgresBank 是 Postgres 存储的词库
// 表结构：words(id, text, category)，首次启动时从词库文件灌入
type PostgresBank struct {
	pool *pgxpool.Pool
}

// NewPostgresBank 建立连接池并确保表结构就绪
// 表为空时用 seedPath 指向的词库文件做一次初始化
func NewPostgresBank(ctx context.Context, dsn string, seedPath string) (*PostgresBank, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "创建 Postgres 连接池失败")
	}

	pb := &PostgresBank{pool: pool}

	if err := pb.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	empty, err := pb.isEmpty(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}

	if empty {
		if err := pb.seedFromFile(ctx, seedPath); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return pb, nil
}

func (pb *PostgresBank) Close() {
	pb.pool.Close()
}

func (pb *PostgresBank) ensureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS words (
			id       SERIAL PRIMARY KEY,
			text     VARCHAR(255) NOT NULL,
			category VARCHAR(255) NOT NULL
		)`

	if _, err := pb.pool.Exec(ctx, ddl); err != nil {
		return errors.Wrap(err, "创建 words 表失败")
	}

	return nil
}

func (pb *PostgresBank) isEmpty(ctx context.Context) (bool, error) {
	var count int

	if err := pb.pool.QueryRow(ctx, `SELECT COUNT(*) FROM words`).Scan(&count); err != nil {
		return false, errors.Wrap(err, "查询词库数量失败")
	}

	return count == 0, nil
}

// seedFromFile 复用文件词库的解析逻辑做首次灌库
func (pb *PostgresBank) seedFromFile(ctx context.Context, seedPath string) error {
	fb, err := LoadFileBank(seedPath)
	if err != nil {
		return err
	}

	for _, e := range fb.entries {
		_, err := pb.pool.Exec(
			ctx,
			`INSERT INTO words (text, category) VALUES ($1, $2)`,
			e.Text, e.Category,
		)
		if err != nil {
			return errors.Wrapf(err, "写入词条 %s 失败", e.Text)
		}
	}

	zap.S().Infof("词库初始化完成，共写入 %d 个词", len(fb.entries))

	return nil
}

// ThreeWords 随机选出最多 3 个不在排除集里的词
// 查询失败时返回空列表，上层按词池耗尽处理
func (pb *PostgresBank) ThreeWords(excluded []string) []string {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	const query = `
		SELECT text FROM words
		WHERE NOT (text = ANY($1))
		ORDER BY random() LIMIT 3`

	if excluded == nil {
		excluded = []string{}
	}

	rows, err := pb.pool.Query(ctx, query, excluded)
	if err != nil {
		zap.S().Errorf("查询候选词失败: %v", err)
		return nil
	}
	defer rows.Close()

	words := make([]string, 0, 3)

	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			zap.S().Errorf("读取候选词失败: %v", err)
			return nil
		}

		words = append(words, text)
	}

	if err := rows.Err(); err != nil {
		zap.S().Errorf("遍历候选词失败: %v", err)
		return nil
	}

	return words
}
