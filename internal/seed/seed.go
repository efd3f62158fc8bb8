// Package seed creates demo freelancers for development databases.
package seed

import (
	"context"
	"fmt"
	"strings"

	"gigfolio/internal/models"
	"gigfolio/internal/repository"
	"gigfolio/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Options control what the Seeder creates.
type Options struct {
	Users        int
	FilesPerUser int
}

// Seeder writes demo data through the regular repositories.
type Seeder struct {
	db        *gorm.DB
	users     repository.UserRepository
	portfolio repository.PortfolioRepository
	dir       *storage.Dir
	faker     *gofakeit.Faker
}

// NewSeeder returns a Seeder. A non-zero randSeed makes the fake data reproducible.
// dir may be nil, in which case no portfolio files are written.
func NewSeeder(db *gorm.DB, dir *storage.Dir, randSeed int64) *Seeder {
	return &Seeder{
		db:        db,
		users:     repository.NewUserRepository(db),
		portfolio: repository.NewPortfolioRepository(db),
		dir:       dir,
		faker:     gofakeit.New(randSeed),
	}
}

// ClearAll removes every portfolio item and user.
func (s *Seeder) ClearAll() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.PortfolioItem{}).Error; err != nil {
			return fmt.Errorf("clear portfolio items: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		return nil
	})
}

// BuildUser returns an unsaved freelancer with fake name, email and skills.
func (s *Seeder) BuildUser(i int, passwordHash string) *models.User {
	f := s.faker
	skills := []string{f.ProgrammingLanguage(), f.ProgrammingLanguage(), f.JobDescriptor()}
	return &models.User{
		Name:     f.Name(),
		Email:    strings.ToLower(fmt.Sprintf("%s.%d@%s", f.Username(), i, f.DomainName())),
		Password: passwordHash,
		Skills:   strings.Join(skills, ", "),
	}
}

// SeedFreelancers creates opts.Users users, each with opts.FilesPerUser placeholder PDFs.
func (s *Seeder) SeedFreelancers(ctx context.Context, opts Options) ([]*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u := s.BuildUser(i, string(hash))
		if err := s.users.Create(ctx, u); err != nil {
			return users, fmt.Errorf("create user %s: %w", u.Email, err)
		}
		users = append(users, u)

		if s.dir == nil {
			continue
		}
		for j := 0; j < opts.FilesPerUser; j++ {
			name := fmt.Sprintf("%d_portfolio_%d.pdf", u.ID, j+1)
			content := fmt.Sprintf("%%PDF-1.4\n%% %s\n%s\n", u.Name, s.faker.Sentence(12))
			if err := s.dir.Save(name, strings.NewReader(content)); err != nil {
				return users, err
			}
			if err := s.portfolio.Create(ctx, &models.PortfolioItem{UserID: u.ID, Filename: name}); err != nil {
				return users, err
			}
		}
	}
	return users, nil
}
