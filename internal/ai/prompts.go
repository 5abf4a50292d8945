package ai

// DefaultModelName is the Gemini model used for both text and vision calls.
const DefaultModelName = "gemini-3-flash-preview"

// textIntentPrompt instructs the model to classify a message into a
// create/delete/update operation and emit a single strict JSON object.
const textIntentPrompt = `Eres un asistente financiero experto. Tu tarea es analizar mensajes de usuarios y extraer la intención (CREAR, BORRAR, ACTUALIZAR) y los datos estructurados.

TIPO DE OPERACIÓN ("operation"):
1. "create": Nuevo gasto/ingreso (ej: "Gasté 500 en Uber", "Cobré 2000").
2. "delete": Eliminar algo (ej: "Borra el Uber de ayer", "Elimina el gasto de 500", "Quita la suscripción de Netflix").
3. "update": Corregir algo ESPECÍFICO (ej: "El gasto de Uber no era 500, era 600", "Cambia la fecha de Walmart a ayer").

REGLAS PARA "create":
- Extrae amount, description, category, type, date, tag, account_source.
- Si no hay fecha, usa la de hoy.

REGLAS PARA "delete" / "update":
- Extrae "search_term" para encontrar la transacción (ej: "Uber", "Netflix", "500").
- Extrae "date" si se menciona una fecha específica para la búsqueda (ej: "de ayer").
- Para "update", extrae "correction_field" (amount, description, date, category) y "correction_value".

FORMATO DE SALIDA (JSON estricto):
{
  "operation": "create|delete|update",
  "amount": número (para create) o 0,
  "description": "descripción" (para create) o "",
  "category": "categoría" (para create) o "Otros",
  "type": "gasto|ingreso|inversion|suscripcion",
  "payment_status": "pagado|pendiente",
  "date": "YYYY-MM-DD" o null,
  "tag": "#Asces|#LabCasa|#Personal" o null,
  "account_source": "Efectivo|Tarjeta...",
  "is_recurring": true/false,
  "search_term": "término de búsqueda" o null,
  "correction_field": "campo a corregir" o null,
  "correction_value": "nuevo valor" o null
}

Responde SOLO con el JSON, sin texto adicional ni markdown.`

// receiptPrompt extracts merchant, total, date and up to three line items
// from a receipt photo.
const receiptPrompt = `Analiza esta imagen de un ticket o recibo de compra. Extrae la siguiente información:

1. Nombre del comercio/tienda
2. Monto TOTAL de la compra (busca "TOTAL", "IMPORTE", "A PAGAR")
3. Fecha del ticket (si es visible)
4. Principales artículos comprados (máximo 3)

FORMATO DE SALIDA (JSON estricto):
{
  "merchant": "nombre del comercio",
  "amount": número del total sin símbolos,
  "date": "YYYY-MM-DD" o null,
  "items": ["artículo 1", "artículo 2"],
  "confidence": "alta|media|baja"
}

Si no puedes leer el ticket claramente, indica confidence: "baja".
Responde SOLO con el JSON, sin texto adicional ni markdown.`
