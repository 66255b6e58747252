package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/mmo-ai/internal/ai"
)

// Record — одно зафиксированное решение агента.
// Записи пишутся каждый тик и позволяют воспроизвести бой по шагам.
type Record struct {
	Seq       uint64        `json:"seq"`
	AgentID   uint64        `json:"agent_id"`
	State     string        `json:"state"`
	TargetID  uint64        `json:"target_id,omitempty"`
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
	DesiredX  float64       `json:"desired_x"`
	DesiredY  float64       `json:"desired_y"`
	Attacking bool          `json:"attacking"`
	Timestamp time.Time     `json:"timestamp"`
	Event     *ai.Event     `json:"event,omitempty"`
}

// Recorder сохраняет трассу решений агентов в BadgerDB.
// Ключи монотонны по (агент, порядковый номер): выгрузка дает
// записи каждого агента в порядке записи.
type Recorder struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
	seq     uint64
}

// NewRecorder открывает хранилище трассы в указанном каталоге
func NewRecorder(dataPath string) (*Recorder, error) {
	dbPath := filepath.Join(dataPath, "trace")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &Recorder{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Close закрывает хранилище
func (r *Recorder) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}

	r.isReady = false
	return r.db.Close()
}

// Append добавляет запись в трассу
func (r *Recorder) Append(rec Record) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return fmt.Errorf("хранилище трассы не готово")
	}

	r.seq++
	rec.Seq = r.seq

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	key := fmt.Sprintf("trace:%016d:%016d", rec.AgentID, rec.Seq)

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	return nil
}

// Snapshot фиксирует текущее состояние агента как запись трассы
func (r *Recorder) Snapshot(agent *ai.Agent, snap ai.EntitySnapshot, now time.Time) error {
	rec := Record{
		AgentID:   uint64(agent.ID()),
		State:     agent.CurrentState().String(),
		X:         snap.Position.X,
		Y:         snap.Position.Y,
		Timestamp: now,
	}

	dec := agent.ComputeDecision()
	rec.DesiredX = dec.DesiredVelocity.X
	rec.DesiredY = dec.DesiredVelocity.Y
	rec.Attacking = dec.WantsToAttack

	if target, ok := agent.CurrentTarget(); ok {
		rec.TargetID = uint64(target.ID)
	}

	return r.Append(rec)
}

// AppendEvent фиксирует событие AI в трассе
func (r *Recorder) AppendEvent(ev ai.Event) error {
	return r.Append(Record{
		AgentID:   uint64(ev.AgentID),
		TargetID:  uint64(ev.TargetID),
		X:         ev.Position.X,
		Y:         ev.Position.Y,
		Timestamp: ev.Timestamp,
		Event:     &ev,
	})
}

// ForAgent возвращает записи одного агента в порядке записи
func (r *Recorder) ForAgent(agentID uint64) ([]Record, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return nil, fmt.Errorf("хранилище трассы не готово")
	}

	prefix := []byte(fmt.Sprintf("trace:%016d:", agentID))
	var records []Record

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения трассы: %w", err)
	}

	return records, nil
}

// Export выгружает всю трассу как zstd-сжатый JSONL
func (r *Recorder) Export(w io.Writer) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if !r.isReady {
		return fmt.Errorf("хранилище трассы не готово")
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("ошибка создания zstd writer: %w", err)
	}

	err = r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("trace:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				if _, err := zw.Write(val); err != nil {
					return err
				}
				_, err := zw.Write([]byte("\n"))
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("ошибка выгрузки трассы: %w", err)
	}

	return zw.Close()
}
