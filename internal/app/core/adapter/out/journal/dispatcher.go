package journal

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-mem-bank/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-bank/internal/app/core/usecase"
)

// ErrDispatcherStopped Dispatcher 已停止，不再接受新的紀錄
var ErrDispatcherStopped = errors.New("journal dispatcher stopped")

// appendRequest 寫入請求包裝channel，讓Append可以等待結果
type appendRequest struct {
	ctx     context.Context
	Entries []Entry
	Result  chan error // 讓 Append 等這個 channel
}

// Dispatcher 單一 goroutine 依序把紀錄寫入 Sink，並分配全局順序號
//
// Append(等待) -> Channel -> Run Loop -> Sequence -> Sink -> Result Channel -> Append(收到結果)
type Dispatcher struct {
	sink   Sink
	logger *zap.Logger
	// 下一個順序號，只有 run loop 會改
	sequence uint64
	// 輸送帶 負責接收寫入請求
	requestChan chan *appendRequest
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	done        chan struct{}
	startOnce   sync.Once
}

// NewDispatcher 建立一個新的 Dispatcher 實例
//
// 參數:
//
//	sink: 實際寫入位置
//	buffer: channel 大小
//	logger: logger
//
// 回傳:
//
//	*Dispatcher: Dispatcher 實例 (需呼叫 Start)
func NewDispatcher(sink Sink, buffer int, logger *zap.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sink:        sink,
		logger:      logger,
		requestChan: make(chan *appendRequest, buffer),
		done:        make(chan struct{}),
		requestPool: sync.Pool{
			New: func() interface{} {
				return &appendRequest{
					Result: make(chan error, 1),
				}
			},
		},
	}
}

// Start 啟動寫入迴圈 (非同步)，ctx 結束後會把剩下的請求處理完再停止
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		go d.run(ctx)
	})
}

// Done 寫入迴圈結束後關閉
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Append 實作 usecase.Journal，等待紀錄寫入 Sink 後回傳
func (d *Dispatcher) Append(ctx context.Context, postings ...domain.Posting) error {
	if len(postings) == 0 {
		return nil
	}
	entries := make([]Entry, 0, len(postings))
	for _, p := range postings {
		entries = append(entries, NewEntry(p))
	}

	// 1. 放入輸送帶 (使用 sync.Pool 減少 GC)
	req := d.requestPool.Get().(*appendRequest)
	req.ctx = ctx
	req.Entries = entries
	select {
	case <-req.Result:
	default:
	}

	select {
	case d.requestChan <- req:
	case <-d.done:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// 2. 等結果；請求仍在處理中時不能放回 Pool
	select {
	case err := <-req.Result:
		d.release(req)
		return err
	case <-d.done:
		select {
		case err := <-req.Result:
			d.release(req)
			return err
		default:
			return ErrDispatcherStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) release(req *appendRequest) {
	req.ctx = nil
	req.Entries = nil
	d.requestPool.Put(req)
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的請求處理完
			d.drain()
			return
		case req := <-d.requestChan:
			d.process(req)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case req := <-d.requestChan:
			d.process(req)
		default:
			return
		}
	}
}

// process 分配順序號並寫入 Sink
func (d *Dispatcher) process(req *appendRequest) {
	for i := range req.Entries {
		d.sequence++
		req.Entries[i].Sequence = d.sequence
	}
	// 呼叫端可能已經放棄等待，寫入仍然要完成
	ctx := context.WithoutCancel(req.ctx)
	err := d.sink.Write(ctx, req.Entries)
	if err != nil {
		d.logger.Error("journal sink write failed",
			zap.Uint64("last_sequence", d.sequence),
			zap.Int("entries", len(req.Entries)),
			zap.Error(err))
	}
	req.Result <- err
}

var _ usecase.Journal = (*Dispatcher)(nil)
