package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/repository"
	"smartpark-backend/internal/service"
)

type SeedZone struct {
	CountryCode      string  `yaml:"country_code"`
	Name             string  `yaml:"name"`
	HourlyRate       string  `yaml:"hourly_rate"`
	TotalSlots       int32   `yaml:"total_slots"`
	Latitude         float64 `yaml:"latitude"`
	Longitude        float64 `yaml:"longitude"`
	RadiusMeters     int32   `yaml:"radius_meters"`
	MaxDurationHours int32   `yaml:"max_duration_hours"`
	Slots            []struct {
		Code string `yaml:"code"`
		Type string `yaml:"type"`
	} `yaml:"slots"`
}

type SeedUser struct {
	Email       string   `yaml:"email"`
	PhoneNumber string   `yaml:"phone_number"`
	Password    string   `yaml:"password"`
	Name        string   `yaml:"name"`
	Roles       []string `yaml:"roles"`
	Balance     string   `yaml:"balance"`
	Vehicles    []string `yaml:"vehicles"`
}

type SeedData struct {
	Zones []SeedZone `yaml:"zones"`
	Users []SeedUser `yaml:"users"`
}

type seedResult struct {
	Zones        int
	Slots        int
	Users        int
	Vehicles     int
	CreatedUsers []domain.User
}

func readSeedFile(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSeed(raw)
}

func parseSeed(raw []byte) (*SeedData, error) {
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	for _, z := range data.Zones {
		if _, err := decimal.NewFromString(z.HourlyRate); err != nil {
			return nil, fmt.Errorf("zone %q: invalid hourly_rate %q", z.Name, z.HourlyRate)
		}
	}
	for _, u := range data.Users {
		if u.Balance == "" {
			continue
		}
		if _, err := decimal.NewFromString(u.Balance); err != nil {
			return nil, fmt.Errorf("user %q: invalid balance %q", u.Email, u.Balance)
		}
	}
	return &data, nil
}

// apply writes zones, slots, users and vehicles in one transaction, then
// funds wallets through the ledger so every balance has matching entries.
func apply(ctx context.Context, store repository.Store, ledger service.WalletLedger, data *SeedData) (*seedResult, error) {
	result := &seedResult{}

	err := store.RunInTx(ctx, func(repos repository.Repositories) error {
		for _, z := range data.Zones {
			zone := &domain.Zone{
				CountryCode:      z.CountryCode,
				Name:             z.Name,
				HourlyRate:       decimal.RequireFromString(z.HourlyRate),
				TotalSlots:       z.TotalSlots,
				Latitude:         z.Latitude,
				Longitude:        z.Longitude,
				RadiusMeters:     z.RadiusMeters,
				MaxDurationHours: z.MaxDurationHours,
				IsActive:         true,
			}
			if zone.MaxDurationHours == 0 {
				zone.MaxDurationHours = 24
			}
			if err := repos.Zones.Create(ctx, zone); err != nil {
				return fmt.Errorf("zone %q: %w", z.Name, err)
			}
			result.Zones++

			for _, s := range z.Slots {
				slotType := domain.SlotType(s.Type)
				if slotType == "" {
					slotType = domain.SlotTypeRegular
				}
				slot := &domain.ParkingSlot{
					ZoneID:   zone.ID,
					SlotCode: s.Code,
					SlotType: slotType,
					Status:   domain.SlotStatusAvailable,
				}
				if err := repos.Slots.Create(ctx, slot); err != nil {
					return fmt.Errorf("slot %s/%s: %w", z.Name, s.Code, err)
				}
				result.Slots++
			}
		}

		for _, u := range data.Users {
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", u.Email, err)
			}
			roles := u.Roles
			if len(roles) == 0 {
				roles = []string{domain.RoleDriver}
			}
			user := &domain.User{
				Email:        u.Email,
				PhoneNumber:  u.PhoneNumber,
				PasswordHash: string(hash),
				Name:         u.Name,
				Roles:        roles,
			}
			if err := repos.Users.Create(ctx, user); err != nil {
				return fmt.Errorf("user %s: %w", u.Email, err)
			}
			result.Users++
			result.CreatedUsers = append(result.CreatedUsers, *user)

			for _, plate := range u.Vehicles {
				if err := repos.Vehicles.Create(ctx, &domain.Vehicle{UserID: user.ID, PlateNumber: plate, IsActive: true}); err != nil {
					return fmt.Errorf("vehicle %s: %w", plate, err)
				}
				result.Vehicles++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, u := range data.Users {
		if u.Balance == "" {
			continue
		}
		amount := decimal.RequireFromString(u.Balance)
		if !amount.IsPositive() {
			continue
		}
		if _, err := ledger.TopUp(ctx, result.CreatedUsers[i].ID, amount, "seed"); err != nil {
			return nil, fmt.Errorf("fund %s: %w", u.Email, err)
		}
	}
	return result, nil
}
