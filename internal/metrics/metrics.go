package metrics

import (
	"exchange-telegram-bot/internal/commands"
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
	"strconv"
	"sync"
)

const (
	namespace = "exchange"
	subsystem = "telegram_bot"
)

// Store persists metric values between restarts.
type Store interface {
	SaveMetric(metricName string, value float64) error
	GetMetric(metricName string) (float64, error)
	SaveMetricWithLabels(metricName, labelKey, labelValue string, value float64) error
	GetMetricsWithLabels(metricName string) (map[string]map[string]float64, error)
}

type BotMetrics struct {
	CommandsProcessed  prometheus.Counter
	MessagesHandled    prometheus.Counter
	ChannelsCount      prometheus.Gauge
	ChannelNames       *prometheus.CounterVec
	MessagesPerChannel *prometheus.CounterVec
	ExchangeOutcomes   *prometheus.CounterVec

	mutex       sync.Mutex
	channelsSet map[int64]string
}

// New creates the bot metrics and registers them with reg.
func New(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_handled",
			Help:      "The total number of handled messages",
		}),
		ChannelsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "channels_count",
			Help:      "The current number of unique channels the bot is operating in",
		}),
		ChannelNames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "channel_names",
				Help:      "Tracks channels the bot has interacted with",
			},
			[]string{"chat_id", "chat_name"},
		),
		MessagesPerChannel: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "messages_per_channel",
				Help:      "The total number of messages handled per channel",
			},
			[]string{"chat_id", "chat_name"},
		),
		ExchangeOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "exchange_outcomes",
				Help:      "The total number of exchange commands by outcome",
			},
			[]string{"outcome"},
		),
		channelsSet: make(map[int64]string),
	}

	reg.MustRegister(
		m.CommandsProcessed,
		m.MessagesHandled,
		m.ChannelsCount,
		m.ChannelNames,
		m.MessagesPerChannel,
		m.ExchangeOutcomes,
	)

	return m
}

// ObserveMessage counts a handled message and remembers its channel.
func (m *BotMetrics) ObserveMessage(chatID int64, chatName string) {
	if chatName == "" {
		chatName = fmt.Sprintf("%s-%d", "PrivateChat", chatID)
	}

	m.MessagesHandled.Inc()
	m.updateChannelsSet(chatID, chatName)
	m.MessagesPerChannel.WithLabelValues(strconv.FormatInt(chatID, 10), chatName).Inc()
}

func (m *BotMetrics) ObserveOutcome(o commands.Outcome) {
	m.ExchangeOutcomes.WithLabelValues(string(o)).Inc()
}

func (m *BotMetrics) ChannelsSeen() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.channelsSet)
}

func (m *BotMetrics) updateChannelsSet(chatID int64, chatName string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.channelsSet[chatID]; !exists {
		m.channelsSet[chatID] = chatName
		m.ChannelsCount.Set(float64(len(m.channelsSet)))

		m.ChannelNames.WithLabelValues(strconv.FormatInt(chatID, 10), chatName).Inc()
	}
}

// Load restores the counters saved by Save.
func (m *BotMetrics) Load(store Store) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	commandsProcessed, err := store.GetMetric("commands_processed")
	logLoadError("commands_processed", err)
	messagesHandled, err := store.GetMetric("messages_handled")
	logLoadError("messages_handled", err)

	m.CommandsProcessed.Add(commandsProcessed)
	m.MessagesHandled.Add(messagesHandled)

	loadLabeledMetrics(store, "channel_names", func(chatIDStr, chatName string, _ float64) {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			log.Errorf("failed to parse chatID %s: %v", chatIDStr, err)
			return
		}
		m.ChannelNames.WithLabelValues(chatIDStr, chatName).Add(1)
		m.channelsSet[chatID] = chatName
	})
	m.ChannelsCount.Set(float64(len(m.channelsSet)))

	loadLabeledMetrics(store, "messages_per_channel", func(chatID, chatName string, value float64) {
		m.MessagesPerChannel.WithLabelValues(chatID, chatName).Add(value)
	})

	loadLabeledMetrics(store, "exchange_outcomes", func(outcome, _ string, value float64) {
		m.ExchangeOutcomes.WithLabelValues(outcome).Add(value)
	})

	log.Infof("metrics loaded from database: %d channels", len(m.channelsSet))
}

// Save writes the current counter values to store.
func (m *BotMetrics) Save(store Store) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	logSaveError("commands_processed", store.SaveMetric("commands_processed", metricValue(m.CommandsProcessed)))
	logSaveError("messages_handled", store.SaveMetric("messages_handled", metricValue(m.MessagesHandled)))
	logSaveError("channels_count", store.SaveMetric("channels_count", float64(len(m.channelsSet))))

	for chatID, chatName := range m.channelsSet {
		err := store.SaveMetricWithLabels("channel_names", strconv.FormatInt(chatID, 10), chatName, float64(chatID))
		logSaveError("channel_names", err)
	}

	collectLabeled(m.MessagesPerChannel, func(labels map[string]string, value float64) {
		err := store.SaveMetricWithLabels("messages_per_channel", labels["chat_id"], labels["chat_name"], value)
		logSaveError("messages_per_channel", err)
	})

	collectLabeled(m.ExchangeOutcomes, func(labels map[string]string, value float64) {
		err := store.SaveMetricWithLabels("exchange_outcomes", labels["outcome"], "", value)
		logSaveError("exchange_outcomes", err)
	})

	log.Debug("metrics saved to database")
}

func loadLabeledMetrics(store Store, metricName string, callback func(labelKey, labelValue string, value float64)) {
	metricsWithLabels, err := store.GetMetricsWithLabels(metricName)
	if err != nil {
		logLoadError(metricName, err)
		return
	}
	for labelKey, labelValues := range metricsWithLabels {
		for labelValue, value := range labelValues {
			callback(labelKey, labelValue, value)
		}
	}
}

func collectLabeled(collector prometheus.Collector, callback func(labels map[string]string, value float64)) {
	metricChan := make(chan prometheus.Metric)
	go func() {
		collector.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Errorf("failed to read metric: %v", err)
			continue
		}
		labels := make(map[string]string, len(metricProto.Label))
		for _, label := range metricProto.Label {
			labels[label.GetName()] = label.GetValue()
		}
		callback(labels, metricProto.GetCounter().GetValue())
	}
}

func metricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Errorf("failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}

func logLoadError(metricName string, err error) {
	if err != nil {
		log.Errorf("failed to load metric %s: %v", metricName, err)
	}
}

func logSaveError(metricName string, err error) {
	if err != nil {
		log.Errorf("failed to save metric %s: %v", metricName, err)
	}
}
