package model

import "time"

// Todo はユーザーが所有するタスクを表す。
// CompletedAtはCompletedがtrueの場合のみ非nil（エポックミリ秒）。
type Todo struct {
	ID          string
	UserID      string
	Text        string
	Completed   bool
	CompletedAt *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MarkCompleted は完了状態にし、完了時刻を記録する。
func (t *Todo) MarkCompleted(at time.Time) {
	ms := at.UnixMilli()
	t.Completed = true
	t.CompletedAt = &ms
}

// MarkIncomplete は未完了状態に戻し、完了時刻をクリアする。
func (t *Todo) MarkIncomplete() {
	t.Completed = false
	t.CompletedAt = nil
}
