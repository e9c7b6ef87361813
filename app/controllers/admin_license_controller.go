package controllers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tradeforgehq/tradeforge/app/repository"
	"github.com/tradeforgehq/tradeforge/internal/pkg/metrics/counter"
	"gorm.io/gorm"
)

const adminPageSize = 50

// HandleAdminListLicenses lists or searches licenses for the admin table.
func HandleAdminListLicenses(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetLicenseRepository()

	if query := strings.TrimSpace(c.Query("q")); query != "" {
		lics, err := repo.Search(query)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "search_failed"})
		}
		return c.JSON(fiber.Map{"licenses": lics})
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	lics, err := repo.List((page-1)*adminPageSize, adminPageSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}
	total, err := repo.Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "count_failed"})
	}
	return c.JSON(fiber.Map{"licenses": lics, "total": total, "page": page})
}

// HandleAdminGetLicense returns one license by key.
func HandleAdminGetLicense(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	lic, err := repository.GetGlobalFactory().GetLicenseRepository().GetByKey(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}
	return c.JSON(lic)
}

// HandleAdminRevokeLicense revokes a license. This is the out-of-band admin
// action; the reconciler itself never revokes.
func HandleAdminRevokeLicense(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	err := repository.GetGlobalFactory().GetLicenseRepository().Revoke(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "revoke_failed"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleAdminListOrders lists orders for the admin table.
func HandleAdminListOrders(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetOrderRepository()

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	orders, err := repo.List((page-1)*adminPageSize, adminPageSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}
	total, err := repo.Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "count_failed"})
	}
	return c.JSON(fiber.Map{"orders": orders, "total": total, "page": page})
}

// HandleAdminStats returns store totals plus the Redis-backed sale and
// webhook counters.
func HandleAdminStats(c *fiber.Ctx) error {
	factory := repository.GetGlobalFactory()

	licenses, err := factory.GetLicenseRepository().Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "count_failed"})
	}
	orders, err := factory.GetOrderRepository().Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "count_failed"})
	}
	subscriptions, err := factory.GetSubscriptionRepository().Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "count_failed"})
	}

	snapshot, err := counter.Read()
	if err != nil {
		// The dashboard still works without live counters.
		log.Printf("admin: reading counters failed: %v", err)
		snapshot = &counter.Snapshot{}
	}

	return c.JSON(fiber.Map{
		"licenses":      licenses,
		"orders":        orders,
		"subscriptions": subscriptions,
		"counters":      snapshot,
	})
}

// HandleAdminListSubscriptions lists subscription mirror rows.
func HandleAdminListSubscriptions(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetSubscriptionRepository()

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	subs, err := repo.List((page-1)*adminPageSize, adminPageSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}
	total, err := repo.Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "count_failed"})
	}
	return c.JSON(fiber.Map{"subscriptions": subs, "total": total, "page": page})
}
