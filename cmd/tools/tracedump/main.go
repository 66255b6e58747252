package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/annel0/mmo-ai/internal/trace"
)

// tracedump выгружает трассу решений агентов из BadgerDB
// в zstd-сжатый JSONL файл для офлайн-анализа.
func main() {
	dataDir := flag.String("data", "data", "каталог с хранилищем трассы")
	out := flag.String("out", "trace.jsonl.zst", "файл выгрузки")
	agentID := flag.Uint64("agent", 0, "вывести записи одного агента в stdout вместо выгрузки")
	flag.Parse()

	recorder, err := trace.NewRecorder(*dataDir)
	if err != nil {
		log.Fatalf("открытие хранилища трассы: %v", err)
	}
	defer recorder.Close()

	if *agentID != 0 {
		records, err := recorder.ForAgent(*agentID)
		if err != nil {
			log.Fatalf("чтение записей агента %d: %v", *agentID, err)
		}
		for _, rec := range records {
			fmt.Printf("#%d [%s] state=%s target=%d pos=(%.1f, %.1f) attack=%v\n",
				rec.Seq, rec.Timestamp.Format("15:04:05.000"), rec.State, rec.TargetID, rec.X, rec.Y, rec.Attacking)
		}
		fmt.Printf("записей: %d\n", len(records))
		return
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("создание файла выгрузки: %v", err)
	}
	defer f.Close()

	if err := recorder.Export(f); err != nil {
		log.Fatalf("выгрузка трассы: %v", err)
	}

	info, _ := f.Stat()
	fmt.Printf("трасса выгружена в %s (%d байт)\n", *out, info.Size())
}
