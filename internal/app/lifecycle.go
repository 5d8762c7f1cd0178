package app

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// RunApp 运行完整的 rendezvous 服务端
//
//   - 构建模块并绑定监听地址
//   - 运行事件循环直到 ctx 取消
//   - 优雅关闭
//
// 示例:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	err := app.RunApp(ctx, app.NewBootstrap(cfg))
func RunApp(ctx context.Context, bootstrap *Bootstrap) (err error) {
	rt, err := bootstrap.Start()
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := rt.Stop(context.Background()); stopErr != nil {
			err = multierr.Append(err, fmt.Errorf("stop: %w", stopErr))
		}
	}()

	return rt.Server.Serve(ctx)
}
