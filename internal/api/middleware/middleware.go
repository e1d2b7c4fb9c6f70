package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sanosuguru/go-community-reservation/internal/config"
	"github.com/sanosuguru/go-community-reservation/internal/pkg/metrics"
)

// SetupMiddleware は共通ミドルウェアを設定する
// m が nil の場合は HTTP メトリクスを収集しない
func SetupMiddleware(e *echo.Echo, auth *config.AuthConfig, m *metrics.Metrics) {
	// リクエストID
	e.Use(RequestIDMiddleware())

	// パニックリカバリー
	e.Use(middleware.Recover())

	// トレース（ログに trace_id を載せるため RequestLogger より外側）
	e.Use(Tracing())

	// 構造化リクエストログ（zap）
	e.Use(RequestLogger())

	// 呼び出し元の識別
	e.Use(Identity(auth))

	e.Use(PrometheusMiddleware(m))

	// CORS
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization,
			HeaderUserID, HeaderUserRole, HeaderIdempotencyKey,
		},
	}))
}
