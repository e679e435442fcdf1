package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"qrscanner/internal/config"
	"qrscanner/internal/dto"
	"qrscanner/internal/repository/sqlite"
)

func main() {
	cfg := config.Load()

	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	session := flag.String("session", "", "Only show this scan session")
	payload := flag.String("payload", "", "Only show payloads containing this text")
	limit := flag.Int("limit", 20, "Number of detections to list")
	top := flag.Int("top", 0, "Show the N most frequent payloads instead of the event list")
	sessions := flag.Bool("sessions", false, "List scan sessions")
	wipe := flag.Bool("clear", false, "Delete the history (or one session with -session)")
	flag.Parse()

	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		log.Fatalf("Database %s does not exist", *dbPath)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewDetectionRepository(db)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	switch {
	case *wipe:
		if *session != "" {
			err = repo.DeleteSession(*session)
		} else {
			err = repo.DeleteAll()
		}
		if err != nil {
			log.Fatalf("Failed to clear history: %v", err)
		}
		fmt.Println("✅ History cleared")

	case *sessions:
		ids, err := repo.GetSessions()
		if err != nil {
			log.Fatalf("Failed to list sessions: %v", err)
		}
		for _, id := range ids {
			count, err := repo.GetTotalCount(&dto.DetectionFilters{Session: id})
			if err != nil {
				log.Fatalf("Failed to count session %s: %v", id, err)
			}
			fmt.Fprintf(w, "%s\t%d events\n", id, count)
		}

	case *top > 0:
		counts, err := repo.GetPayloadCounts(*top)
		if err != nil {
			log.Fatalf("Failed to count payloads: %v", err)
		}
		fmt.Fprintln(w, "COUNT\tLAST SEEN\tPAYLOAD")
		for _, pc := range counts {
			fmt.Fprintf(w, "%d\t%s\t%s\n", pc.Count, pc.LastSeen.Local().Format("02-01-2006 15:04:05"), pc.Payload)
		}

	default:
		filter := &dto.DetectionFilters{Session: *session, Payload: *payload, Limit: *limit}
		rows, err := repo.GetAll(filter)
		if err != nil {
			log.Fatalf("Failed to query history: %v", err)
		}
		total, err := repo.GetTotalCount(filter)
		if err != nil {
			log.Fatalf("Failed to count history: %v", err)
		}

		fmt.Fprintln(w, "TIME\tKIND\tVERSION\tSESSION\tPAYLOAD")
		for _, det := range rows {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				det.Timestamp.Local().Format("02-01-2006 15:04:05"), det.Kind, det.Version, det.SessionID, det.Payload)
		}
		w.Flush()
		fmt.Printf("\n📊 Showing %d of %d detections\n", len(rows), total)
	}
}
