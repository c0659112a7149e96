package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/obs"
	"github.com/NordCoder/Uptimer/internal/repository/kafka"
)

// kafka-init creates the alert topic ahead of the services, for deployments where
// the brokers do not auto-create topics.
func main() {
	_ = godotenv.Load()
	brokers := flag.String("brokers", envOr("KAFKA_BROKERS", "localhost:9092"), "comma-separated broker list")
	topics := flag.String("topics", envOr("KAFKA_TOPICS", "uptimer.alerts"), "comma-separated topics")
	partitions := flag.Int("partitions", 3, "partitions per new topic")
	rf := flag.Int("replication-factor", 1, "replication factor per new topic")
	wait := flag.Duration("wait", 30*time.Second, "how long to wait for each topic")
	flag.Parse()

	l, err := obs.NewLogger(obs.LogConfig{Level: "info", App: "kafka-init"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	list := strings.Split(*brokers, ",")
	for _, t := range strings.Split(*topics, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		err := kafka.EnsureTopic(ctx, list, kafka.TopicSpec{
			Name:              t,
			NumPartitions:     *partitions,
			ReplicationFactor: *rf,
			MaxWait:           *wait,
		}, l)
		if err != nil {
			l.Fatal("ensure topic", zap.String("topic", t), zap.Error(err))
		}
	}
	l.Info("kafka-init ok")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
