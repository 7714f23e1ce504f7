// app/bootstrap.go
package app

import (
	"context"

	"tool_lending_tracker/db"
	"tool_lending_tracker/lending"

	"go.uber.org/zap"
)

// StarterCatalog is the inventory the workshop started with.
var StarterCatalog = []db.CatalogEntry{
	{Name: "Milwaukee - Болгарка", Quantity: 5},
	{Name: "Milwaukee - Перфоратор", Quantity: 3},
	{Name: "Milwaukee - Сабельная пила", Quantity: 4},
	{Name: "Milwaukee - Шуруповёрт", Quantity: 6},
	{Name: "Milwaukee - Пылеуловитель для перфоратора", Quantity: 2},
	{Name: "Milwaukee - Зарядка для аккумуляторов", Quantity: 3},
	{Name: "Milwaukee - Аккумулятор", Quantity: 10},
	{Name: "Toua Газовый монтажный пистолет", Quantity: 2},
	{Name: "Bosch - Перфоратор", Quantity: 3},
	{Name: "Makita - Перфоратор", Quantity: 3},
	{Name: "Makita - Сабельная пила", Quantity: 2},
	{Name: "Makita - Болгарка xLock", Quantity: 4},
	{Name: "Makita - Проводная болгарка", Quantity: 3},
	{Name: "Пылесос для модулей Makita", Quantity: 1},
	{Name: "Makita - Станция", Quantity: 1},
	{Name: "Makita - Зарядная станция", Quantity: 2},
	{Name: "SHTOK - Лестница 2.6м", Quantity: 2},
	{Name: "Лестница - 6 ступеней", Quantity: 2},
	{Name: "Лестница - 7 ступеней", Quantity: 2},
	{Name: "Лестница 3 секции - 7 ступеней", Quantity: 1},
	{Name: "Удлинитель - 50 метров", Quantity: 2},
	{Name: "Удлинитель - 30 метров", Quantity: 2},
	{Name: "Стол для производства", Quantity: 1},
	{Name: "Насадка для перфоратора", Quantity: 5},
	{Name: "CONDTROL - Лазерный уровень", Quantity: 1},
	{Name: "ROCODIL - Лазерный уровень", Quantity: 1},
	{Name: "Пылесос", Quantity: 1},
	{Name: "REXANT - Инфракрасный пирометр", Quantity: 2},
	{Name: "LIXE - Пороховой монтажный пистолет", Quantity: 1},
}

// BootstrapCatalog seeds the starter catalog into an empty store.
func BootstrapCatalog(ctx context.Context, t *lending.Tracker, log *zap.Logger) {
	n, err := t.SeedCatalog(ctx, StarterCatalog)
	if err != nil {
		log.Error("seed catalog failed", zap.Error(err))
		return
	}
	if n == 0 {
		log.Debug("catalog already present, seed skipped")
	}
}
