// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package yclients

import "context"

// API defines the full operation surface of the YCLIENTS client wrapper.
// Consumers depend on this interface rather than the concrete Client so the
// circuit-breaker wrapper and test fakes can substitute for it.
type API interface {
	CompanyID() int64
	Close()

	// Branches
	ListBranches(ctx context.Context, opts BranchesOptions) (*Envelope, error)

	// Staff
	ListStaff(ctx context.Context, opts StaffOptions) (*Envelope, error)
	GetStaff(ctx context.Context, staffID int64) (*Envelope, error)

	// Services and categories
	ListServices(ctx context.Context, opts ServicesOptions) (*Envelope, error)
	GetService(ctx context.Context, serviceID int64) (*Envelope, error)
	ListCompanyServices(ctx context.Context) (*Envelope, error)
	ListServiceCategories(ctx context.Context, opts CategoriesOptions) (*Envelope, error)
	ListChainServiceCategories(ctx context.Context, chainID int64, includeServices bool) (*Envelope, error)
	ListServicesByStaff(ctx context.Context, staffID int64, dateTime string) (*Envelope, error)
	BuildServiceCatalog(ctx context.Context, companyID int64) (*ServiceCatalog, error)

	// Clients and visits
	GetClient(ctx context.Context, clientID int64) (*Envelope, error)
	SearchClients(ctx context.Context, query SearchQuery) (*Envelope, error)
	FindClient(ctx context.Context, criteria FindCriteria) (*Envelope, error)
	FindClientByPhone(ctx context.Context, phone string) (map[string]any, error)
	ClientVisits(ctx context.Context, query VisitsQuery) (*Envelope, error)
	LastVisitInfo(ctx context.Context, phone string) (*LastVisit, error)

	// Booking
	BookAppointment(ctx context.Context, req BookingRequest) (*Envelope, error)
	CancelAppointment(ctx context.Context, recordID int64, opts CancelOptions) error
	RescheduleAppointment(ctx context.Context, recordID int64, newDateTime, comment string) (*Envelope, error)
	AvailableDays(ctx context.Context, opts AvailabilityOptions) (*Envelope, error)
	AvailableTimes(ctx context.Context, staffID int64, dateISO string, serviceIDs []int64) (*Envelope, error)

	// Company and booking-form discovery
	GetCompany(ctx context.Context, companyID int64) (*Envelope, error)
	GetBookForm(ctx context.Context, formID int64) (*Envelope, error)
	FetchFormSalonIDs(ctx context.Context, formIDs []int64) ([]int64, error)
}

// Compile-time interface checks.
var (
	_ API = (*Client)(nil)
	_ API = (*BreakerClient)(nil)
)
