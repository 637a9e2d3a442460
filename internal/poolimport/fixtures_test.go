package poolimport

import "time"

func row(values ...any) Row {
	r := make(Row, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case string:
			r[i] = TextCell(x)
		case int:
			r[i] = NumberCell(float64(x))
		case float64:
			r[i] = NumberCell(x)
		case time.Time:
			r[i] = DateCell(x)
		}
	}
	return r
}

var headerRow = row("Cliente", "Hora", "Hab.", "Cantidad", "Técnica")

// singleDayGrid mimics a one-day export: title block, date in B6, header, data.
func singleDayGrid(data ...Row) Grid {
	g := Grid{
		row("BALNEARIO"),
		row("Listado de reservas"),
		nil,
		nil,
		nil,
		row("Fecha:", "01/06/2025"),
		nil,
		headerRow,
	}
	return append(g, data...)
}

// multiDayGrid has two dated sections with three reservations each.
func multiDayGrid() Grid {
	return Grid{
		row("Listado de reservas"),
		row("Día :", "01/06/2025"),
		headerRow,
		row("García", 0.41666, "12", 2, "RECORRIDO TERMAL ALOJADOS 60"),
		row("López", "11:30", "", 1, "IMS PISCINA TERMAL 25"),
		row("Martín", "1230", "3", 4, "CIRCUITO NO ALOJADOS"),
		nil,
		row("Día :", 45810.0),
		headerRow,
		row("Pérez", 0.375, "101", 1, "RECORRIDO TERMAL ALOJADOS 60"),
		row("Ruiz", "9:00", "", 2, "IMSERSO"),
		row("Sanz", "17:00:00", "7", "3 pax", "MASAJE"),
	}
}
