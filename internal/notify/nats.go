package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hitoshi/newswatcher/internal/metrics"
	"github.com/hitoshi/newswatcher/internal/model"
)

// TransportNATS はNATS経由の通知を表すメトリクスラベル。
const TransportNATS = "nats"

// Subject は通知種別に対応するNATSサブジェクトを返す。
func Subject(prefix string, kind model.EventKind) string {
	return prefix + "." + string(kind)
}

// ConnectNATS はNATSサーバーに接続する。切断時は無制限に再接続を試みる。
func ConnectNATS(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("newswatcher"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			attrs := []any{slog.String("url", url)}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			logger.Warn("NATSとの接続が切断されました", attrs...)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATSに再接続しました", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("NATSへの接続に失敗しました: %w", err)
	}
	return nc, nil
}

// NATSSubscriber はNATSサブジェクトから通知を受信し、Publisherに投入する。
type NATSSubscriber struct {
	conn      *nats.Conn
	publisher Publisher
	logger    *slog.Logger
	metrics   metrics.MetricsCollector
	prefix    string
	timeout   time.Duration
	subs      []*nats.Subscription
}

// NewNATSSubscriber はNATSSubscriberの新しいインスタンスを生成する。
func NewNATSSubscriber(conn *nats.Conn, prefix string, publisher Publisher, logger *slog.Logger, collector metrics.MetricsCollector) *NATSSubscriber {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &NATSSubscriber{
		conn:      conn,
		publisher: publisher,
		logger:    logger,
		metrics:   collector,
		prefix:    prefix,
		timeout:   5 * time.Second,
	}
}

// Start は2つの通知サブジェクトを購読する。
func (s *NATSSubscriber) Start() error {
	for _, kind := range []model.EventKind{model.EventHighImportance, model.EventDataAvailable} {
		subject := Subject(s.prefix, kind)
		sub, err := s.conn.Subscribe(subject, s.HandleMsg)
		if err != nil {
			s.Close()
			return fmt.Errorf("サブジェクト %s の購読に失敗しました: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
		s.logger.Info("NATSサブジェクトを購読しました", slog.String("subject", subject))
	}
	return nil
}

// HandleMsg はNATSメッセージをデコードして通知チャネルに投入する。
// 不正なメッセージはログに記録して破棄する。
func (s *NATSSubscriber) HandleMsg(msg *nats.Msg) {
	event, err := s.decode(msg.Subject, msg.Data)
	if err != nil {
		s.logger.Warn("NATS通知のデコードに失敗しました",
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("通知チャネルへの投入に失敗しました",
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()),
		)
		return
	}
	s.metrics.RecordPushEvent(string(event.Kind()), TransportNATS)
}

func (s *NATSSubscriber) decode(subject string, data []byte) (model.NotificationEvent, error) {
	switch subject {
	case Subject(s.prefix, model.EventHighImportance):
		return DecodeHighImportance(data)
	case Subject(s.prefix, model.EventDataAvailable):
		return DecodeDataAvailable(data)
	default:
		return nil, fmt.Errorf("未対応のサブジェクトです: %s", subject)
	}
}

// Close は購読を解除する。接続自体は呼び出し元が閉じる。
func (s *NATSSubscriber) Close() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("NATS購読の解除に失敗しました",
				slog.String("subject", sub.Subject),
				slog.String("error", err.Error()),
			)
		}
	}
	s.subs = nil
}
