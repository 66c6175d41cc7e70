package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"anonchat/backend/internal/appeal"
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	svc := storage.NewService(db, nil) // No redis needed for the CLI
	appeals := appeal.NewService(svc, nil)

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "ban":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin ban <ip> [reason]")
			os.Exit(1)
		}
		ip := os.Args[2]
		reason := ""
		if len(os.Args) > 3 {
			reason = os.Args[3]
		}
		if err := banAddress(svc, ip, reason); err != nil {
			log.Fatalf("Error banning %s: %v", ip, err)
		}
		fmt.Printf("%s has been banned.\n", ip)
	case "unban":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin unban <ip>")
			os.Exit(1)
		}
		ip := os.Args[2]
		if err := svc.DeleteBanByIP(ip); err != nil {
			log.Fatalf("Error unbanning %s: %v", ip, err)
		}
		fmt.Printf("%s has been unbanned.\n", ip)
	case "list-bans":
		bans, err := svc.ListBans()
		if err != nil {
			log.Fatalf("Error listing bans: %v", err)
		}
		for _, ban := range bans {
			fmt.Printf("%d\t%s\t%s\t%s\n", ban.ID, ban.IP,
				time.Unix(ban.BannedAt, 0).Format(time.RFC3339), ban.Reason)
		}
	case "appeals":
		status := ""
		if len(os.Args) > 2 {
			status = os.Args[2]
		}
		list, err := svc.ListAppeals(status)
		if err != nil {
			log.Fatalf("Error listing appeals: %v", err)
		}
		for _, a := range list {
			fmt.Printf("%d\t%s\t%s\t%s\t%s\n", a.ID, a.IP, a.Status, a.Email, a.Reason)
		}
	case "resolve-appeal":
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin resolve-appeal <id> <approved|rejected> [notes]")
			os.Exit(1)
		}
		id, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Println("Invalid appeal ID. Please provide an integer.")
			os.Exit(1)
		}
		notes := ""
		if len(os.Args) > 4 {
			notes = os.Args[4]
		}
		resolved, err := appeals.Resolve(uint(id), os.Args[3], notes, "cli")
		if err != nil {
			log.Fatalf("Error resolving appeal: %v", err)
		}
		fmt.Printf("Appeal %d is now %s.\n", resolved.ID, resolved.Status)
	default:
		usage()
	}
}

func usage() {
	fmt.Println("Usage: admin <ban|unban|list-bans|appeals|resolve-appeal> [args]")
	os.Exit(1)
}

func banAddress(svc *storage.Service, ip, reason string) error {
	existing, err := svc.GetBanByIP(ip)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%s is already banned", ip)
	}
	return svc.CreateBan(&models.BanRecord{
		IP:       ip,
		Reason:   reason,
		BannedAt: time.Now().Unix(),
		BannedBy: "cli",
	})
}
