package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"jobpilot/apply-service/internal/model"
	"jobpilot/apply-service/internal/quota"
)

// UserStore reads users and applicant profiles for the pipeline.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore returns a configured UserStore.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// LoadVerified fetches all verified users. Eligibility beyond verification
// (resume, companies, technology) is the quota gate's job — loading stays
// cheap and the skip is logged per user.
func (s *UserStore) LoadVerified(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, name, phone, tier, verified, resume_url,
		        technology, location, companies, notify_sms
		 FROM users
		 WHERE verified = true
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var tier string
		if err := rows.Scan(
			&u.ID, &u.Email, &u.Name, &u.Phone, &tier, &u.Verified,
			&u.ResumeURL, &u.Technology, &u.Location, &u.Companies, &u.NotifySMS,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Tier = model.Tier(tier)
		users = append(users, u)
	}
	return users, rows.Err()
}

// ProfilesFor resolves the applicant profiles to process for a user. Base
// tiers get a single profile synthesised from the user record; recruiter and
// business tiers load their applicant_profiles rows, capped at the tier's
// slot count.
func (s *UserStore) ProfilesFor(ctx context.Context, u *model.User) ([]model.ApplicantProfile, error) {
	slots := quota.ProfileSlots(u.Tier)
	if slots <= 1 {
		return []model.ApplicantProfile{selfProfile(u)}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, email, phone, resume_url, technology,
		        address, linkedin, github, portfolio
		 FROM applicant_profiles
		 WHERE user_id = $1
		 ORDER BY created_at
		 LIMIT $2`,
		u.ID, slots,
	)
	if err != nil {
		return nil, fmt.Errorf("query profiles for user %s: %w", u.ID, err)
	}
	defer rows.Close()

	var profiles []model.ApplicantProfile
	for rows.Next() {
		var p model.ApplicantProfile
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone, &p.ResumeURL,
			&p.Technology, &p.Address, &p.LinkedIn, &p.GitHub, &p.Portfolio,
		); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// A recruiter who uploaded no candidates yet still applies as themself.
	if len(profiles) == 0 {
		profiles = append(profiles, selfProfile(u))
	}
	return profiles, nil
}

// selfProfile builds the implicit single profile for base-tier users.
func selfProfile(u *model.User) model.ApplicantProfile {
	return model.ApplicantProfile{
		ID:         u.ID,
		UserID:     u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		ResumeURL:  u.ResumeURL,
		Technology: u.Technology,
	}
}
