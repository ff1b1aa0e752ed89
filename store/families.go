package store

import (
	core "recordbin/data/db"
	"recordbin/domain/record"
)

var businessProfileMapping = tableMapping[record.BusinessProfile]{
	table: "business_profiles",
	columns: []string{
		"owner_id", "business_name", "logo_name", "address", "city", "state",
		"zip_code", "country", "email", "phone", "created_at", "deleted", "deleted_at",
	},
	values: func(p *record.BusinessProfile) []any {
		return []any{
			p.OwnerID, p.BusinessName, p.LogoName, p.Address, p.City, p.State,
			p.ZipCode, p.Country, p.Email, p.Phone, p.CreatedAt.UTC(), p.Deleted, utcPtr(p.DeletedAt),
		}
	},
	fields: func(p *record.BusinessProfile) []any {
		return []any{
			&p.OwnerID, &p.BusinessName, &p.LogoName, &p.Address, &p.City, &p.State,
			&p.ZipCode, &p.Country, &p.Email, &p.Phone, &p.CreatedAt, &p.Deleted, &p.DeletedAt,
		}
	},
	base: func(p *record.BusinessProfile) *record.Base { return &p.Base },
}

var clientMapping = tableMapping[record.Client]{
	table: "clients",
	columns: []string{
		"owner_id", "name", "email", "phone", "address", "street", "city", "state",
		"zip_code", "country", "created_at", "deleted", "deleted_at",
	},
	values: func(c *record.Client) []any {
		return []any{
			c.OwnerID, c.Name, c.Email, c.Phone, c.Address, c.Street, c.City, c.State,
			c.ZipCode, c.Country, c.CreatedAt.UTC(), c.Deleted, utcPtr(c.DeletedAt),
		}
	},
	fields: func(c *record.Client) []any {
		return []any{
			&c.OwnerID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Street, &c.City, &c.State,
			&c.ZipCode, &c.Country, &c.CreatedAt, &c.Deleted, &c.DeletedAt,
		}
	},
	base: func(c *record.Client) *record.Base { return &c.Base },
}

// NewBusinessProfileStore 商户资料存储
func NewBusinessProfileStore(db core.IDatabase) *LiveStore[record.BusinessProfile] {
	return newLiveStore(db, businessProfileMapping)
}

// NewClientStore 客户存储
func NewClientStore(db core.IDatabase) *LiveStore[record.Client] {
	return newLiveStore(db, clientMapping)
}
