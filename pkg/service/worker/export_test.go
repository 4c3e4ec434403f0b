package worker

import "context"

func (w *ConfigRefreshWorker) RefreshOnce(ctx context.Context) int {
	return w.refresh(ctx)
}
